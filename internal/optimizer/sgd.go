package optimizer

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// GradientDescent is the plain parameter -= lr*grad optimizer, grounded
// on the teacher's pkg/optimizers/stochastic_gradient_descent.go.
// Expressed with the closed opcode set as a ScalarMul(lr) of a scaled
// gradient copy followed by a Sub, since there is no dedicated SGD
// opcode and spec.md 4.C only names AdamStep as a fused update kernel.
type GradientDescent struct {
	LearningRate float32
}

// NewGradientDescent returns an SGD optimizer with the given learning rate.
func NewGradientDescent(lr float32) *GradientDescent {
	return &GradientDescent{LearningRate: lr}
}

// Instructions returns, per parameter, three instructions (copy the
// gradient into a scratch tensor, scale it by lr, subtract it from
// Value) that update Value in place from lr*Gradient.
func (g *GradientDescent) Instructions(params []Param) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, 2*len(params))
	lr := tensor.NewFilled(1, 1, g.LearningRate)
	for _, p := range params {
		scaled := tensor.New(p.Gradient.Rows, p.Gradient.Cols)
		out = append(out,
			instruction.New(instruction.Copy, instruction.Optimization, []*tensor.Tensor{p.Gradient}, []*tensor.Tensor{scaled}, instruction.Attributes{}),
			instruction.New(instruction.ScalarMul, instruction.Optimization, []*tensor.Tensor{lr}, []*tensor.Tensor{scaled}, instruction.Attributes{}),
			instruction.New(instruction.Sub, instruction.Optimization, []*tensor.Tensor{p.Value, scaled}, []*tensor.Tensor{p.Value}, instruction.Attributes{}),
		)
	}
	return out
}
