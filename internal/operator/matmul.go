package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// MatMul is the BinaryOperator C <- op(A)*op(B), spec.md 4.E. TransB
// selects whether B is read transposed; A is never transposed by this
// builder (Linear is the transB=true, bias-carrying specialization).
type MatMul struct {
	ctx    *Context
	TransB bool
}

// NewMatMul returns a MatMul builder.
func NewMatMul(ctx *Context, transB bool) *MatMul {
	return &MatMul{ctx: ctx, TransB: transB}
}

func matmulOutShape(a, b *tensor.Tensor, transB bool) (rows, cols int, ok bool) {
	bRows, bCols := b.Rows, b.Cols
	if transB {
		bRows, bCols = bCols, bRows
	}
	if a.Cols != bRows {
		return 0, 0, false
	}
	return a.Rows, bCols, true
}

// Forward validates shapes and emits the forward Gemm plus the two
// gradient Gemms spec.md 4.E prescribes.
func (m *MatMul) Forward(a, b *TensorWithGrad) (*TensorWithGrad, error) {
	rows, cols, ok := matmulOutShape(a.Value, b.Value, m.TransB)
	if !ok {
		return nil, device.NewIncompatibleShapes("MatMul", "A.Cols must equal B's contracted dimension")
	}

	out := newOutput(rows, cols, a, b)

	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(m.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Gemm, instruction.Inference,
		[]*tensor.Tensor{a.Value, b.Value}, []*tensor.Tensor{out.Value},
		instruction.Attributes{TransB: m.TransB, Alpha: 1, Beta: 0},
	))

	if a.RequiresGrad() {
		// dA <- dC * op(B), B read with the opposite transpose of forward.
		out.GradientInstructions = append(out.GradientInstructions, instruction.New(
			instruction.Gemm, instruction.Gradient,
			[]*tensor.Tensor{out.Gradient, b.Value}, []*tensor.Tensor{a.Gradient},
			instruction.Attributes{TransB: !m.TransB, Alpha: 1, Beta: 1},
		))
	}
	if b.RequiresGrad() {
		// dB <- op(A)^T * dC, written into B's natural orientation via transC.
		out.GradientInstructions = append(out.GradientInstructions, instruction.New(
			instruction.Gemm, instruction.Gradient,
			[]*tensor.Tensor{a.Value, out.Gradient}, []*tensor.Tensor{b.Gradient},
			instruction.Attributes{TransA: true, TransC: m.TransB, Alpha: 1, Beta: 1},
		))
	}
	return out, nil
}
