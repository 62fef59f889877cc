package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMachineConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	content := `
backend: gonum
execution_units: 8
optimizer:
  name: sgd
  learning_rate: 0.1
seed: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadMachineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gonum", cfg.Backend)
	assert.Equal(t, 8, cfg.ExecutionUnits)
	assert.Equal(t, "sgd", cfg.Optimizer.Name)
	assert.Equal(t, float32(0.1), cfg.Optimizer.LearningRate)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestLoadMachineConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	content := `{"backend":"cpu","execution_units":2,"optimizer":{"name":"adam","learning_rate":0.01,"beta1":0.9,"beta2":0.999,"epsilon":1e-8},"seed":1}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadMachineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cpu", cfg.Backend)
	assert.Equal(t, "adam", cfg.Optimizer.Name)
}

func TestLoadMachineConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadMachineConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMachineConfig(), cfg)
}

func TestLoadMachineConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("NM_BACKEND", "gonum")
	t.Setenv("NM_LR", "0.25")
	t.Setenv("NM_EXECUTION_UNITS", "16")
	t.Setenv("NM_OPTIMIZER", "sgd")
	t.Setenv("NM_SEED", "99")

	cfg, err := LoadMachineConfig("")
	require.NoError(t, err)
	assert.Equal(t, "gonum", cfg.Backend)
	assert.Equal(t, 16, cfg.ExecutionUnits)
	assert.Equal(t, "sgd", cfg.Optimizer.Name)
	assert.Equal(t, float32(0.25), cfg.Optimizer.LearningRate)
	assert.Equal(t, int64(99), cfg.Seed)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.Backend = "tpu"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveExecutionUnits(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.ExecutionUnits = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownOptimizer(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.Optimizer.Name = "rmsprop"
	require.Error(t, cfg.Validate())
}
