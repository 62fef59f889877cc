package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Reshape is the UnaryOperator reinterpreting x's element count under a
// new (rows, cols) pair. Per the resolved Open Question of spec.md §9,
// reshape is implemented as copying rather than as a view: it emits a
// Copy instruction into a freshly shaped buffer rather than aliasing
// x's storage, so every operand keeps the single-writer discipline the
// stream planner depends on. The backend's Copy kernel was relaxed from
// a same-shape to a same-length check precisely so this builder can
// express reshape with the existing closed opcode set.
type Reshape struct {
	ctx        *Context
	Rows, Cols int
}

// NewReshape returns a Reshape builder targeting the given shape.
func NewReshape(ctx *Context, rows, cols int) *Reshape {
	return &Reshape{ctx: ctx, Rows: rows, Cols: cols}
}

func (r *Reshape) Forward(x *TensorWithGrad) (*TensorWithGrad, error) {
	if r.Rows*r.Cols != x.Value.Len() {
		return nil, device.NewIncompatibleShapes("Reshape", "target shape must preserve element count")
	}
	out := newOutput(r.Rows, r.Cols, x)
	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(r.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		instruction.Copy, instruction.Inference, []*tensor.Tensor{x.Value}, []*tensor.Tensor{out.Value}, instruction.Attributes{},
	))

	if x.RequiresGrad() {
		back := tensor.New(x.Value.Rows, x.Value.Cols)
		out.GradientInstructions = append(out.GradientInstructions,
			instruction.New(instruction.Copy, instruction.Gradient, []*tensor.Tensor{out.Gradient}, []*tensor.Tensor{back}, instruction.Attributes{}),
			instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{x.Gradient, back}, []*tensor.Tensor{x.Gradient}, instruction.Attributes{}),
		)
	}
	return out, nil
}
