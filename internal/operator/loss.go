package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// ResidualSumOfSquares is the BinaryOperator loss sum((predicted -
// expected)^2), the perceptron-training loss of the original dataset
// this spec's scenarios are modeled on. It is built entirely from
// already-defined composable operators — Sub, self-Mul for squaring,
// Reshape to flatten, and a MatMul against a constant ones column to
// reduce to a scalar — rather than a dedicated kernel, so its backward
// falls out of the generic chain instead of a hand-written closed form.
type ResidualSumOfSquares struct {
	ctx *Context
}

// NewResidualSumOfSquares returns a ResidualSumOfSquares builder.
func NewResidualSumOfSquares(ctx *Context) *ResidualSumOfSquares {
	return &ResidualSumOfSquares{ctx: ctx}
}

func (l *ResidualSumOfSquares) Forward(predicted, expected *TensorWithGrad) (*TensorWithGrad, error) {
	if !predicted.Value.SameShape(expected.Value) {
		return nil, device.NewIncompatibleShapes("ResidualSumOfSquares", "predicted and expected shapes differ")
	}
	diff, err := NewSub(l.ctx).Forward(predicted, expected)
	if err != nil {
		return nil, err
	}
	sq, err := NewMul(l.ctx).Forward(diff, diff)
	if err != nil {
		return nil, err
	}
	n := sq.Value.Len()
	flat, err := NewReshape(l.ctx, 1, n).Forward(sq)
	if err != nil {
		return nil, err
	}
	ones := Leaf(tensor.NewFilled(n, 1, 1))
	return NewMatMul(l.ctx, false).Forward(flat, ones)
}
