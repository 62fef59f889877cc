package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Elementwise is the BinaryOperator for Add, Sub, Mul and Div: equal
// shape in, equal shape out, spec.md 4.C.
type Elementwise struct {
	ctx *Context
	Op  instruction.OpCode
}

// NewAdd, NewSub, NewMul and NewDiv return the four Elementwise
// builders.
func NewAdd(ctx *Context) *Elementwise { return &Elementwise{ctx: ctx, Op: instruction.Add} }
func NewSub(ctx *Context) *Elementwise { return &Elementwise{ctx: ctx, Op: instruction.Sub} }
func NewMul(ctx *Context) *Elementwise { return &Elementwise{ctx: ctx, Op: instruction.Mul} }
func NewDiv(ctx *Context) *Elementwise { return &Elementwise{ctx: ctx, Op: instruction.Div} }

func negate(t *tensor.Tensor) []instruction.Instruction {
	return []instruction.Instruction{
		instruction.New(instruction.ScalarMul, instruction.Gradient, []*tensor.Tensor{Constant(-1)}, []*tensor.Tensor{t}, instruction.Attributes{}),
	}
}

func (e *Elementwise) Forward(a, b *TensorWithGrad) (*TensorWithGrad, error) {
	if !a.Value.SameShape(b.Value) {
		return nil, device.NewIncompatibleShapes(e.Op.String(), "operands must share shape")
	}
	out := newOutput(a.Value.Rows, a.Value.Cols, a, b)
	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(e.ctx, out, instruction.Inference)...)
	out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
		e.Op, instruction.Inference, []*tensor.Tensor{a.Value, b.Value}, []*tensor.Tensor{out.Value}, instruction.Attributes{},
	))

	switch e.Op {
	case instruction.Add:
		if a.RequiresGrad() {
			out.GradientInstructions = append(out.GradientInstructions, instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{a.Gradient, out.Gradient}, []*tensor.Tensor{a.Gradient}, instruction.Attributes{}))
		}
		if b.RequiresGrad() {
			out.GradientInstructions = append(out.GradientInstructions, instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{b.Gradient, out.Gradient}, []*tensor.Tensor{b.Gradient}, instruction.Attributes{}))
		}
	case instruction.Sub:
		if a.RequiresGrad() {
			out.GradientInstructions = append(out.GradientInstructions, instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{a.Gradient, out.Gradient}, []*tensor.Tensor{a.Gradient}, instruction.Attributes{}))
		}
		if b.RequiresGrad() {
			out.GradientInstructions = append(out.GradientInstructions, instruction.New(instruction.Sub, instruction.Gradient, []*tensor.Tensor{b.Gradient, out.Gradient}, []*tensor.Tensor{b.Gradient}, instruction.Attributes{}))
		}
	case instruction.Mul:
		if a.RequiresGrad() {
			tmp := tensor.New(a.Value.Rows, a.Value.Cols)
			out.GradientInstructions = append(out.GradientInstructions,
				instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{b.Value, out.Gradient}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
				instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{a.Gradient, tmp}, []*tensor.Tensor{a.Gradient}, instruction.Attributes{}),
			)
		}
		if b.RequiresGrad() {
			tmp := tensor.New(a.Value.Rows, a.Value.Cols)
			out.GradientInstructions = append(out.GradientInstructions,
				instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{a.Value, out.Gradient}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
				instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{b.Gradient, tmp}, []*tensor.Tensor{b.Gradient}, instruction.Attributes{}),
			)
		}
	case instruction.Div:
		if a.RequiresGrad() {
			tmp := tensor.New(a.Value.Rows, a.Value.Cols)
			out.GradientInstructions = append(out.GradientInstructions,
				instruction.New(instruction.Div, instruction.Gradient, []*tensor.Tensor{out.Gradient, b.Value}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
				instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{a.Gradient, tmp}, []*tensor.Tensor{a.Gradient}, instruction.Attributes{}),
			)
		}
		if b.RequiresGrad() {
			bSq := tensor.New(a.Value.Rows, a.Value.Cols)
			tmp := tensor.New(a.Value.Rows, a.Value.Cols)
			out.GradientInstructions = append(out.GradientInstructions,
				instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{b.Value, b.Value}, []*tensor.Tensor{bSq}, instruction.Attributes{}),
				instruction.New(instruction.Mul, instruction.Gradient, []*tensor.Tensor{a.Value, out.Gradient}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
				instruction.New(instruction.Div, instruction.Gradient, []*tensor.Tensor{tmp, bSq}, []*tensor.Tensor{tmp}, instruction.Attributes{}),
			)
			out.GradientInstructions = append(out.GradientInstructions, negate(tmp)...)
			out.GradientInstructions = append(out.GradientInstructions, instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{b.Gradient, tmp}, []*tensor.Tensor{b.Gradient}, instruction.Attributes{}))
		}
	}
	return out, nil
}
