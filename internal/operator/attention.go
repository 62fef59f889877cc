package operator

import (
	"math"

	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// ScaledDotProductAttention composes MatMul, a 1/sqrt(d_k) scale, an
// optional causal Mask and Softmax, and a final MatMul — spec.md 4.E's
// attention operator, built entirely from already-defined builders, no
// new opcode needed.
type ScaledDotProductAttention struct {
	ctx     *Context
	Causal  bool
	scores  *MatMul
	weights *MatMul
}

// NewScaledDotProductAttention returns an attention builder.
func NewScaledDotProductAttention(ctx *Context, causal bool) *ScaledDotProductAttention {
	return &ScaledDotProductAttention{
		ctx:     ctx,
		Causal:  causal,
		scores:  NewMatMul(ctx, true),
		weights: NewMatMul(ctx, false),
	}
}

// Forward computes softmax(mask(Q*Kt / sqrt(d_k))) * V for
// Q, K, V of shape (seq, d_k).
func (a *ScaledDotProductAttention) Forward(q, k, v *TensorWithGrad) (*TensorWithGrad, error) {
	if q.Value.Cols != k.Value.Cols {
		return nil, device.NewIncompatibleShapes("ScaledDotProductAttention", "Q and K must share d_k")
	}
	scores, err := a.scores.Forward(q, k)
	if err != nil {
		return nil, err
	}

	scale := float32(1 / math.Sqrt(float64(q.Value.Cols)))
	scaled := newOutput(scores.Value.Rows, scores.Value.Cols, scores)
	scaled.ForwardInstructions = append(scaled.ForwardInstructions, clearInstructions(a.ctx, scaled, instruction.Inference)...)
	scaled.ForwardInstructions = append(scaled.ForwardInstructions,
		instruction.New(instruction.Copy, instruction.Inference, []*tensor.Tensor{scores.Value}, []*tensor.Tensor{scaled.Value}, instruction.Attributes{}),
		instruction.New(instruction.ScalarMul, instruction.Inference, []*tensor.Tensor{Constant(scale)}, []*tensor.Tensor{scaled.Value}, instruction.Attributes{}),
	)
	if scores.RequiresGrad() {
		back := tensor.New(scores.Value.Rows, scores.Value.Cols)
		scaled.GradientInstructions = append(scaled.GradientInstructions,
			instruction.New(instruction.ScalarMul, instruction.Gradient, []*tensor.Tensor{Constant(scale)}, []*tensor.Tensor{scaled.Gradient}, instruction.Attributes{}),
			instruction.New(instruction.Copy, instruction.Gradient, []*tensor.Tensor{scaled.Gradient}, []*tensor.Tensor{back}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{scores.Gradient, back}, []*tensor.Tensor{scores.Gradient}, instruction.Attributes{}),
		)
	}

	masked := scaled
	if a.Causal {
		m, err := NewCausalMask(a.ctx).Forward(scaled)
		if err != nil {
			return nil, err
		}
		masked = m
	}

	probs, err := NewSoftmax(a.ctx).Forward(masked)
	if err != nil {
		return nil, err
	}
	return a.weights.Forward(probs, v)
}
