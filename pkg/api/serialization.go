// Package api persists and restores a machine's parameter registry,
// adapted from the teacher's pkg/api: the same versioned
// length-prefixed-JSON-metadata-plus-binary-floats checkpoint format
// and atomic temp-file-then-rename write, retargeted from
// layers.Module.Params() (float64, N-D shape) to
// operator.Context.Params ([]*operator.TensorWithGrad, row-major f32).
package api

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tapegraph/neuralmachine/internal/operator"
)

type paramMeta struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

type checkpointMeta struct {
	Version int         `json:"version"`
	Params  []paramMeta `json:"params"`
}

const checkpointVersion = 1

// SaveCheckpoint writes every parameter's value in ctx.Params, in
// registration order, to path. Gradients are not persisted: they are
// zero-cleared at the start of every Gradient-category run, so there is
// nothing useful to restore. The file is written to a temp path in the
// same directory and renamed into place, so a crash mid-write never
// leaves a truncated file at path.
func SaveCheckpoint(ctx *operator.Context, path string) error {
	meta := checkpointMeta{Version: checkpointVersion, Params: make([]paramMeta, len(ctx.Params))}
	for i, p := range ctx.Params {
		meta.Params[i] = paramMeta{Rows: p.Value.Rows, Cols: p.Value.Cols}
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("api: marshal checkpoint metadata: %w", err)
	}
	if len(metaBytes) > (1 << 31) {
		return errors.New("api: checkpoint metadata too large")
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".tmp_checkpoint")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("api: create temp checkpoint: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(metaBytes))); err != nil {
		return fmt.Errorf("api: write checkpoint metadata length: %w", err)
	}
	if _, err := f.Write(metaBytes); err != nil {
		return fmt.Errorf("api: write checkpoint metadata: %w", err)
	}
	for _, p := range ctx.Params {
		if err := binary.Write(f, binary.LittleEndian, p.Value.Data); err != nil {
			return fmt.Errorf("api: write parameter data: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("api: close temp checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint and
// copies its data into ctx.Params in place. It requires the checkpoint
// to describe exactly the same number of parameters, in the same
// shapes, as ctx — the registry is built once at TryNew and never
// changes shape afterward, so any mismatch means the checkpoint belongs
// to a different model.
func LoadCheckpoint(ctx *operator.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("api: open checkpoint: %w", err)
	}
	defer f.Close()

	var metaLen uint32
	if err := binary.Read(f, binary.LittleEndian, &metaLen); err != nil {
		return fmt.Errorf("api: read checkpoint metadata length: %w", err)
	}
	metaBytes := make([]byte, metaLen)
	if _, err := io.ReadFull(f, metaBytes); err != nil {
		return fmt.Errorf("api: read checkpoint metadata: %w", err)
	}
	var meta checkpointMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("api: unmarshal checkpoint metadata: %w", err)
	}
	if meta.Version != checkpointVersion {
		return fmt.Errorf("api: unsupported checkpoint version %d", meta.Version)
	}
	if len(meta.Params) != len(ctx.Params) {
		return fmt.Errorf("api: param count mismatch: checkpoint=%d model=%d", len(meta.Params), len(ctx.Params))
	}

	for i, pm := range meta.Params {
		target := ctx.Params[i].Value
		if pm.Rows != target.Rows || pm.Cols != target.Cols {
			return fmt.Errorf("api: shape mismatch for param %d: checkpoint=%dx%d model=%dx%d", i, pm.Rows, pm.Cols, target.Rows, target.Cols)
		}
		if err := binary.Read(f, binary.LittleEndian, target.Data); err != nil {
			return fmt.Errorf("api: read parameter %d data: %w", i, err)
		}
	}
	return nil
}
