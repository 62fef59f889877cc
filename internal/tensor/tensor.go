// Package tensor owns the raw f32 buffers that flow through the
// instruction program: shape, identity, and the two flags builders use
// to decide whether an operand needs a gradient buffer and whether an
// optimizer should touch it.
package tensor

import (
	"fmt"
	"sync/atomic"
)

// nextName hands out the stable integer identity every Tensor keeps for
// its lifetime. Two distinct tensors never share a name.
var nextName int64

// Tensor is a rectangular rows x cols array of f32. Shape is immutable
// after creation except through Resize, which preserves element count.
type Tensor struct {
	name         int64
	Rows, Cols   int
	Data         []float32
	RequiresGrad bool
	IsParameter  bool
}

// New allocates a zero-filled tensor of the given shape.
func New(rows, cols int) *Tensor {
	return &Tensor{
		name: atomic.AddInt64(&nextName, 1),
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

// NewFilled allocates a tensor of the given shape with every element
// set to v. Operator builders and optimizers use it for constant
// operands (scalars such as a learning rate). The program assembler
// does not allocate placeholder inputs: a ModelFunc allocates its own
// input leaves.
func NewFilled(rows, cols int, v float32) *Tensor {
	t := New(rows, cols)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// Name returns the tensor's stable identity, assigned once at
// allocation and never reused.
func (t *Tensor) Name() int64 { return t.name }

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor#%d(%dx%d)", t.name, t.Rows, t.Cols)
}

// Len returns the element count, rows*cols.
func (t *Tensor) Len() int { return t.Rows * t.Cols }

// Shape returns (rows, cols).
func (t *Tensor) Shape() (int, int) { return t.Rows, t.Cols }

// SameShape reports whether t and other have identical rows and cols.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.Rows == other.Rows && t.Cols == other.Cols
}

// Resize reshapes t in place, preserving its element count and its
// identity. It panics if the new shape does not hold the same number
// of elements — callers must only ever resize into a shape that the
// caller has already validated.
func (t *Tensor) Resize(rows, cols int) {
	if rows*cols != len(t.Data) {
		panic(fmt.Sprintf("tensor: resize of %s to %dx%d changes element count", t, rows, cols))
	}
	t.Rows, t.Cols = rows, cols
}

// At returns the element at (row, col) in row-major order.
func (t *Tensor) At(row, col int) float32 {
	return t.Data[row*t.Cols+col]
}

// Set writes the element at (row, col) in row-major order.
func (t *Tensor) Set(row, col int, v float32) {
	t.Data[row*t.Cols+col] = v
}

// Clone returns a deep copy with a fresh identity, for a before/after
// snapshot that does not alias the original buffer.
func (t *Tensor) Clone() *Tensor {
	c := New(t.Rows, t.Cols)
	copy(c.Data, t.Data)
	c.RequiresGrad = t.RequiresGrad
	c.IsParameter = t.IsParameter
	return c
}
