// Package config loads the machine's runtime configuration: backend
// selection, optimizer hyperparameters, and scheduler sizing. Adapted
// from the teacher's pkg/config, keeping its JSON/YAML-with-fallback
// LoadConfig helper and environment-override convention.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MachineConfig collects the settings a NeuralMachine needs to start.
type MachineConfig struct {
	// Backend selects the device implementation: "cpu" or "gonum".
	Backend string `json:"backend" yaml:"backend"`

	// ExecutionUnits bounds how many streams the scheduler may run
	// concurrently.
	ExecutionUnits int `json:"execution_units" yaml:"execution_units"`

	Optimizer OptimizerConfig `json:"optimizer" yaml:"optimizer"`

	// Seed drives the backend's Bernoulli sampler (dropout masks).
	Seed int64 `json:"seed" yaml:"seed"`
}

// OptimizerConfig selects and parametrizes one of the internal/optimizer
// implementations.
type OptimizerConfig struct {
	// Name is "adam" or "sgd".
	Name         string  `json:"name" yaml:"name"`
	LearningRate float32 `json:"learning_rate" yaml:"learning_rate"`
	Beta1        float32 `json:"beta1" yaml:"beta1"`
	Beta2        float32 `json:"beta2" yaml:"beta2"`
	Epsilon      float32 `json:"epsilon" yaml:"epsilon"`
}

// DefaultMachineConfig returns safe defaults: the CPU backend with four
// execution units and Adam with the hyperparameters of the original
// paper.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		Backend:        "cpu",
		ExecutionUnits: 4,
		Optimizer: OptimizerConfig{
			Name:         "adam",
			LearningRate: 0.001,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
		},
		Seed: 42,
	}
}

// LoadConfig reads path and unmarshals it into out. JSON (.json) and
// YAML (.yaml, .yml) are both supported; an unrecognized extension
// tries JSON then YAML.
func LoadConfig(path string, out interface{}) error {
	if path == "" {
		return errors.New("LoadConfig: empty path")
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("LoadConfig: read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("LoadConfig: json unmarshal: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("LoadConfig: yaml unmarshal: %w", err)
		}
		return nil
	default:
		if err := json.Unmarshal(bs, out); err == nil {
			return nil
		}
		if err := yaml.Unmarshal(bs, out); err == nil {
			return nil
		}
		return fmt.Errorf("LoadConfig: unsupported format and parsing failed (json/yaml tried)")
	}
}

// LoadMachineConfig loads a MachineConfig from path, falling back to
// defaults when path is empty, then applies environment overrides and
// validates the result.
func LoadMachineConfig(path string) (MachineConfig, error) {
	cfg := DefaultMachineConfig()
	if path != "" {
		if err := LoadConfig(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields a NeuralMachine cannot start without.
func (c *MachineConfig) Validate() error {
	switch c.Backend {
	case "cpu", "gonum":
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	if c.ExecutionUnits <= 0 {
		return errors.New("ExecutionUnits must be > 0")
	}
	switch c.Optimizer.Name {
	case "adam", "sgd":
	default:
		return fmt.Errorf("unsupported optimizer: %s", c.Optimizer.Name)
	}
	if c.Optimizer.LearningRate <= 0 {
		return errors.New("Optimizer.LearningRate must be > 0")
	}
	return nil
}

// applyEnvOverrides supports NM_BACKEND, NM_EXECUTION_UNITS, NM_LR,
// NM_OPTIMIZER and NM_SEED.
func applyEnvOverrides(c *MachineConfig) {
	if v := os.Getenv("NM_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("NM_EXECUTION_UNITS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.ExecutionUnits = i
		}
	}
	if v := os.Getenv("NM_LR"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.Optimizer.LearningRate = float32(f)
		}
	}
	if v := os.Getenv("NM_OPTIMIZER"); v != "" {
		c.Optimizer.Name = v
	}
	if v := os.Getenv("NM_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = s
		}
	}
}
