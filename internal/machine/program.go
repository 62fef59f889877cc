// Package machine implements spec.md 4.F/4.G/6: the program assembler
// that linearizes a differentiable graph into a category-partitioned
// instruction program, and the NeuralMachine that walks that program
// through its four training-step operations.
package machine

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/operator"
	"github.com/tapegraph/neuralmachine/internal/optimizer"
	"github.com/tapegraph/neuralmachine/internal/scheduler"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Program is the immutable, category-partitioned instruction set a
// NeuralMachine runs every training step, plus the stream plan the
// scheduler executes for each category.
type Program struct {
	Plans map[instruction.Category]*scheduler.Plan
	Raw   map[instruction.Category][]instruction.Instruction
}

// Assemble builds a Program from a loss node: it walks the tape once
// forward (to linearize Inference and Loss category instructions,
// already correctly tagged by the builders that produced them) and
// once in reverse (to linearize Gradient category instructions plus a
// ClipNorm per gradient output), then prepends two things every
// program needs regardless of which operators built it:
//
//   - a Copy of the constant 1 into loss.Gradient: every loss node this
//     package builds is scalar, and composite losses built from the
//     generic elementwise/MatMul builders read their own out.Gradient
//     during backward, so it must hold 1 before the reverse walk runs;
//   - one ScalarMul(0) per registered parameter's Gradient buffer: the
//     tape only clears a non-leaf node's own value/gradient buffers at
//     the head of its forward instructions, but parameters are leaves
//     with no forward instructions of their own, so nothing else would
//     zero their accumulated gradient between training steps.
//
// Finally it appends the optimizer's Optimization-category instructions
// over every registered parameter.
func Assemble(ctx *operator.Context, loss *operator.TensorWithGrad, opt optimizer.Optimizer) *Program {
	tape := operator.Tape(loss)
	forward := operator.LinearizeForward(tape)

	seed := instruction.New(
		instruction.Copy, instruction.Gradient,
		[]*tensor.Tensor{operator.Constant(1)}, []*tensor.Tensor{loss.Gradient},
		instruction.Attributes{},
	)
	gradient := make([]instruction.Instruction, 0, len(ctx.Params)+1)
	gradient = append(gradient, seed)
	zero := ctx.ZeroScalar()
	for _, p := range ctx.Params {
		gradient = append(gradient, instruction.New(
			instruction.ScalarMul, instruction.Gradient,
			[]*tensor.Tensor{zero}, []*tensor.Tensor{p.Gradient},
			instruction.Attributes{},
		))
	}
	gradient = append(gradient, operator.LinearizeGradient(tape)...)

	params := make([]optimizer.Param, len(ctx.Params))
	for i, p := range ctx.Params {
		params[i] = optimizer.Param{Value: p.Value, Gradient: p.Gradient}
	}
	optimization := opt.Instructions(params)

	all := append(append([]instruction.Instruction{}, forward...), gradient...)
	all = append(all, optimization...)
	raw := instruction.Partition(all)

	plans := make(map[instruction.Category]*scheduler.Plan, 4)
	for category, instrs := range raw {
		plans[category] = scheduler.Build(instrs)
	}
	return &Program{Plans: plans, Raw: raw}
}
