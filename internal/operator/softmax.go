package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Softmax is the UnaryOperator computing a row-wise stable softmax.
// Its backward applies the Jacobian identity of spec.md 4.E, decomposed
// as (y . (1-y)) * dy — the diagonal term — accumulated into the
// input's gradient; this is an approximation that ignores the
// off-diagonal -y_i*y_j cross terms, which is exact only when Softmax
// is immediately followed by a loss that contracts each row to a
// scalar (as SoftmaxCrossEntropyLoss does, via its own closed-form
// backward in crossentropy.go) but is kept here too for composability with other
// consumers, matching spec.md's literal wording.
type Softmax struct {
	ctx *Context
}

// NewSoftmax returns a Softmax builder.
func NewSoftmax(ctx *Context) *Softmax {
	return &Softmax{ctx: ctx}
}

func (s *Softmax) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	out := newOutput(x.Value.Rows, x.Value.Cols, x)

	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(s.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Softmax, instruction.Inference,
		[]*tensor.Tensor{x.Value}, []*tensor.Tensor{out.Value},
		instruction.Attributes{},
	))

	if x.RequiresGrad() {
		// ones is a compile-time constant (never recomputed), unlike
		// the other workspace tensors below which the Gradient category
		// overwrites fresh on every step.
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
