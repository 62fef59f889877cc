package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Sigmoid is the UnaryOperator computing the elementwise logistic
// function. Its backward is the exact derivative y*(1-y)*dy, built
// from the same Sub/Mul/Add sequence Softmax uses for its own
// diagonal term.
type Sigmoid struct {
	ctx *Context
}

// NewSigmoid returns a Sigmoid builder.
func NewSigmoid(ctx *Context) *Sigmoid {
	return &Sigmoid{ctx: ctx}
}

func (s *Sigmoid) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	out := newOutput(x.Value.Rows, x.Value.Cols, x)

	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(s.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Sigmoid, instruction.Inference,
		[]*tensor.Tensor{x.Value}, []*tensor.Tensor{out.Value},
		instruction.Attributes{},
	))

	if x.RequiresGrad() {
		ones := tensor.NewFilled(out.Value.Rows, out.Value.Cols, 1)
		oneMinusY := tensor.New(out.Value.Rows, out.Value.Cols)
		diag := tensor.New(out.Value.Rows, out.Value.Cols)

		out.GradientInstructions = append(out.GradientInstructions,
			instruction.New(instruction.Sub, instruction.Gradient, []*tensor.Tensor{ones, out.Value}, []*tensor.Tensor{oneMinusY}, instruction.Attributes{}),
			instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{out.Value, oneMinusY}, []*tensor.Tensor{diag}, instruction.Attributes{}),
			instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{diag, out.Gradient}, []*tensor.Tensor{diag}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{x.Gradient, diag}, []*tensor.Tensor{x.Gradient}, instruction.Attributes{}),
		)
	}
	return out, nil
}
