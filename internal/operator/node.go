// Package operator is the graph builder of spec.md 4.D/4.E: stateless
// or parameter-holding operator values whose Forward method validates
// shapes, allocates an output TensorWithGrad, and pushes the forward
// and gradient instructions that the program assembler (internal/machine)
// later linearizes into an instruction program.
package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// TensorWithGrad pairs a value and a gradient tensor of identical
// shape with the instructions that produced the value (forward) and
// that propagate its gradient into its inputs (gradient), plus the
// input nodes used to reconstruct the backward tape.
type TensorWithGrad struct {
	Value    *tensor.Tensor
	Gradient *tensor.Tensor

	ForwardInstructions  []instruction.Instruction
	GradientInstructions []instruction.Instruction

	Inputs []*TensorWithGrad
}

// Leaf wraps a tensor with no forward instructions and no inputs — a
// machine input, a parameter, or any other graph root. Gradient.RequiresGrad
// mirrors value.RequiresGrad: it is what downstream operators check
// before emitting a gradient instruction for this node.
func Leaf(value *tensor.Tensor) *TensorWithGrad {
	grad := tensor.New(value.Rows, value.Cols)
	grad.RequiresGrad = value.RequiresGrad
	return &TensorWithGrad{Value: value, Gradient: grad}
}

// RequiresGrad reports whether downstream operators should emit a
// gradient instruction that writes into this node's Gradient.
func (n *TensorWithGrad) RequiresGrad() bool {
	return n.Gradient.RequiresGrad
}

func anyRequiresGrad(inputs ...*TensorWithGrad) bool {
	for _, in := range inputs {
		if in.RequiresGrad() {
			return true
		}
	}
	return false
}

// newOutput allocates a zero-filled output of the given shape whose
// Gradient.RequiresGrad is the OR of its inputs' — it is marked so
// gradient instructions continue to flow through it — and records
// inputs for tape reconstruction.
func newOutput(rows, cols int, inputs ...*TensorWithGrad) *TensorWithGrad {
	out := Leaf(tensor.New(rows, cols))
	out.Gradient.RequiresGrad = anyRequiresGrad(inputs...)
	out.Inputs = inputs
	return out
}

// clearInstructions returns the two ScalarMul(0) clears spec.md 4.E
// prescribes at the head of every forward instruction sequence: the
// value and gradient buffers are reused across training steps and
// must be rezeroed before each forward pass recomputes them.
func clearInstructions(ctx *Context, out *TensorWithGrad, category instruction.Category) []instruction.Instruction {
	zero := ctx.ZeroScalar()
	return []instruction.Instruction{
		instruction.New(instruction.ScalarMul, category, []*tensor.Tensor{zero}, []*tensor.Tensor{out.Value}, instruction.Attributes{}),
		instruction.New(instruction.ScalarMul, category, []*tensor.Tensor{zero}, []*tensor.Tensor{out.Gradient}, instruction.Attributes{}),
	}
}
