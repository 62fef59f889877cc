package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// SoftmaxCrossEntropyLoss is the BinaryOperator fusing a row-wise
// softmax with cross-entropy against one-hot expected values, spec.md
// 4.E/4.F. Fusion happens at the graph-builder level: the forward
// instruction list runs Softmax then SoftmaxCrossEntropyLoss back to
// back, and the backward bypasses Softmax's own Jacobian entirely in
// favor of the closed form d(logits) = probs - expected, avoiding the
// numerically fragile per-element softmax gradient.
type SoftmaxCrossEntropyLoss struct {
	ctx *Context
}

// NewSoftmaxCrossEntropyLoss returns a SoftmaxCrossEntropyLoss builder.
func NewSoftmaxCrossEntropyLoss(ctx *Context) *SoftmaxCrossEntropyLoss {
	return &SoftmaxCrossEntropyLoss{ctx: ctx}
}

// Forward takes pre-softmax logits and one-hot expected values and
// returns a 1x1 loss node.
func (s *SoftmaxCrossEntropyLoss) Forward(logits, expected *TensorWithGrad) (*TensorWithGrad, error) {
	if !logits.Value.SameShape(expected.Value) {
		return nil, device.NewIncompatibleShapes("SoftmaxCrossEntropyLoss", "logits and expected shapes differ")
	}
	probs := tensor.New(logits.Value.Rows, logits.Value.Cols)
	out := newOutput(1, 1, logits, expected)

	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(s.ctx, out, instruction.Loss)...)
	out.ForwardInstructions = append(out.ForwardInstructions,
		instruction.New(instruction.Softmax, instruction.Loss, []*tensor.Tensor{logits.Value}, []*tensor.Tensor{probs}, instruction.Attributes{}),
		instruction.New(instruction.SoftmaxCrossEntropyLoss, instruction.Loss, []*tensor.Tensor{expected.Value, probs}, []*tensor.Tensor{out.Value}, instruction.Attributes{}),
	)

	if logits.RequiresGrad() {
		diff := tensor.New(logits.Value.Rows, logits.Value.Cols)
		out.GradientInstructions = append(out.GradientInstructions,
			instruction.New(instruction.Sub, instruction.Gradient, []*tensor.Tensor{probs, expected.Value}, []*tensor.Tensor{diff}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{logits.Gradient, diff}, []*tensor.Tensor{logits.Gradient}, instruction.Attributes{}),
		)
	}
	return out, nil
}
