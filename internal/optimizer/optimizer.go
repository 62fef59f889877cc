// Package optimizer implements spec.md 4.I's Optimizer category: given
// the registered parameter/gradient pairs of a graph, emit the
// Optimization-category instructions that update each parameter in
// place. Unlike the teacher's pkg/optimizers, which mutates graph node
// values directly inside a Step call, an Optimizer here only builds
// instructions — the program assembler linearizes and the scheduler
// executes them, so the same optimizer works unmodified against any
// Backend.
package optimizer

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Param pairs a parameter's value with its persistent gradient buffer
// — the unit every Optimizer updates.
type Param struct {
	Value    *tensor.Tensor
	Gradient *tensor.Tensor
}

// Optimizer emits, for a set of parameters, the Optimization-category
// instructions that update each Value in place from its Gradient.
type Optimizer interface {
	Instructions(params []Param) []instruction.Instruction
}
