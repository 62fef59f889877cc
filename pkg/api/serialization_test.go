package api

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapegraph/neuralmachine/internal/operator"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

func TestSaveAndLoadCheckpointRoundTrips(t *testing.T) {
	ctx := operator.NewContext(tensor.NewStore())
	linear := operator.NewLinear(ctx, 3, 2)
	for i := range linear.W.Value.Data {
		linear.W.Value.Data[i] = float32(i) + 0.5
	}
	for i := range linear.B.Value.Data {
		linear.B.Value.Data[i] = float32(i) * 2
	}

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, SaveCheckpoint(ctx, path))

	restored := operator.NewContext(tensor.NewStore())
	operator.NewLinear(restored, 3, 2)
	require.NoError(t, LoadCheckpoint(restored, path))

	assert.Equal(t, linear.W.Value.Data, restored.Params[0].Value.Data)
	assert.Equal(t, linear.B.Value.Data, restored.Params[1].Value.Data)
}

func TestLoadCheckpointRejectsShapeMismatch(t *testing.T) {
	ctx := operator.NewContext(tensor.NewStore())
	operator.NewLinear(ctx, 3, 2)
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, SaveCheckpoint(ctx, path))

	other := operator.NewContext(tensor.NewStore())
	operator.NewLinear(other, 4, 2)
	require.Error(t, LoadCheckpoint(other, path))
}
