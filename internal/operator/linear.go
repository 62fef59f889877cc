package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Linear is the UnaryOperator Y <- X*Wt + B of spec.md's supplemented
// feature set: a dense layer built from the same Gemm opcode MatMul
// uses, with W and B registered as parameters so the optimizer
// enumerates them. W and B's TensorWithGrad wrappers are allocated once
// so every Forward call accumulates into the same gradient buffer.
type Linear struct {
	ctx  *Context
	W    *TensorWithGrad // out_features x in_features
	B    *TensorWithGrad // 1 x out_features
	ones *tensor.Tensor
}

// NewLinear allocates W and B as parameters in ctx.Store and returns a
// Linear builder for inFeatures -> outFeatures.
func NewLinear(ctx *Context, inFeatures, outFeatures int) *Linear {
	return &Linear{
		ctx: ctx,
		W:   ctx.NewParameter(outFeatures, inFeatures),
		B:   ctx.NewParameter(1, outFeatures),
	}
}

// Forward computes Y = X*Wt + B for a batch of rows shape(batch, inFeatures).
func (l *Linear) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	batch := x.Value.Rows
	outFeatures := l.W.Value.Rows

	out := newOutput(batch, outFeatures, x, l.W, l.B)

	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(l.ctx, out, instruction.Inference)...)
	// Broadcast B into every row of out before accumulating X*Wt.
	for r := 0; r < batch; r++ {
		out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
			instruction.CopySlice, instruction.Inference,
			[]*tensor.Tensor{l.B.Value}, []*tensor.Tensor{out.Value},
			instruction.Attributes{
				SliceSrcRow: 0, SliceSrcCol: 0,
				SliceDstRow: r, SliceDstCol: 0,
				SliceRows: 1, SliceCols: outFeatures,
			},
		))
	}
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Gemm, instruction.Inference,
		[]*tensor.Tensor{x.Value, l.W.Value}, []*tensor.Tensor{out.Value},
		instruction.Attributes{TransB: true, Alpha: 1, Beta: 1},
	))

	if x.RequiresGrad() {
		out.GradientInstructions = append(out.GradientInstructions, instruction.New(
			instruction.Gemm, instruction.Gradient,
			[]*tensor.Tensor{out.Gradient, l.W.Value}, []*tensor.Tensor{x.Gradient},
			instruction.Attributes{Alpha: 1, Beta: 1},
		))
	}
	// dW <- dY^T * X, written in W's (out x in) orientation.
	out.GradientInstructions = append(out.GradientInstructions, instruction.New(
		instruction.Gemm, instruction.Gradient,
		[]*tensor.Tensor{out.Gradient, x.Value}, []*tensor.Tensor{l.W.Gradient},
		instruction.Attributes{TransA: true, Alpha: 1, Beta: 1},
	))
	// dB <- ones(1,batch) * dY, summing gradient rows.
	if l.ones == nil || l.ones.Cols != batch {
		l.ones = tensor.NewFilled(1, batch, 1)
	}
	out.GradientInstructions = append(out.GradientInstructions, instruction.New(
		instruction.Gemm, instruction.Gradient,
		[]*tensor.Tensor{l.ones, out.Gradient}, []*tensor.Tensor{l.B.Gradient},
		instruction.Attributes{Alpha: 1, Beta: 1},
	))
	return out, nil
}
