package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// CausalMask is the UnaryOperator zeroing the strict upper triangle of
// its input, spec.md 4.C's Mask opcode, used to make attention scores
// causal. Its backward is itself: the gradient flowing back through a
// zeroed position is zero, so the same Mask kernel is reused on the
// incoming gradient.
type CausalMask struct {
	ctx *Context
}

// NewCausalMask returns a CausalMask builder.
func NewCausalMask(ctx *Context) *CausalMask {
	return &CausalMask{ctx: ctx}
}

func (m *CausalMask) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	out := newOutput(x.Value.Rows, x.Value.Cols, x)
	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(m.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Mask, instruction.Inference, []*tensor.Tensor{x.Value}, []*tensor.Tensor{out.Value}, instruction.Attributes{},
	))
	if x.RequiresGrad() {
		masked := tensor.New(x.Value.Rows, x.Value.Cols)
		out.GradientInstructions = append(out.GradientInstructions,
			instruction.New(instruction.Mask, instruction.Gradient, []*tensor.Tensor{out.Gradient}, []*tensor.Tensor{masked}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{x.Gradient, masked}, []*tensor.Tensor{x.Gradient}, instruction.Attributes{}),
		)
	}
	return out, nil
}
