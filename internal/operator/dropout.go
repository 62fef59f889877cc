package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Dropout is the UnaryOperator sampling a Bernoulli keep-mask at rate p
// and rescaling the survivors by 1/(1-p), spec.md's supplemented
// regularization feature. The mask is resampled by a fresh Bernoulli
// instruction every forward pass; its gradient is the same mask scaled
// the same way, since dropout is a fixed linear map once the mask is
// drawn.
type Dropout struct {
	ctx  *Context
	Rate float32
}

// NewDropout returns a Dropout builder with keep-probability 1-rate.
func NewDropout(ctx *Context, rate float32) *Dropout {
	return &Dropout{ctx: ctx, Rate: rate}
}

func (d *Dropout) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	rows, cols := x.Value.Rows, x.Value.Cols
	keepProb := tensor.NewFilled(rows, cols, 1-d.Rate)
	mask := tensor.New(rows, cols)
	rescale := Constant(1 / (1 - d.Rate))

	out := newOutput(rows, cols, x)
	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(d.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions,
		instruction.New(instruction.Bernoulli, instruction.Inference, []*tensor.Tensor{keepProb}, []*tensor.Tensor{mask}, instruction.Attributes{}),
		instruction.New(instruction.Mul, instruction.Inference, []*tensor.Tensor{x.Value, mask}, []*tensor.Tensor{out.Value}, instruction.Attributes{}),
		instruction.New(instruction.ScalarMul, instruction.Inference, []*tensor.Tensor{rescale}, []*tensor.Tensor{out.Value}, instruction.Attributes{}),
	)

	if x.RequiresGrad() {
		tmp := tensor.New(rows, cols)
		out.GradientInstructions = append(out.GradientInstructions,
			instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{out.Gradient, mask}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
			instruction.New(instruction.ScalarMul, instruction.Gradient, []*tensor.Tensor{rescale}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{x.Gradient, tmp}, []*tensor.Tensor{x.Gradient}, instruction.Attributes{}),
		)
	}
	return out, nil
}
