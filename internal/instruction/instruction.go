package instruction

import "github.com/tapegraph/neuralmachine/internal/tensor"

// Attributes holds the compile-time constants an opcode needs beyond
// its tensor operands. Unlike operands, attributes never change once
// an instruction is built — anything that mutates step to step (Adam's
// step counter, a dropout mask's keep-probabilities) is an explicit
// tensor input or output instead, per the "no hidden allocation" rule
// of spec.md 4.C.
type Attributes struct {
	TransA, TransB, TransC bool
	Alpha, Beta            float32

	Beta1, Beta2, Epsilon, LearningRate float32

	// SliceSrcRow/Col, SliceDstRow/Col, SliceRows/Cols parametrize
	// CopySlice: a SliceRows x SliceCols block read from
	// (SliceSrcRow, SliceSrcCol) and written at (SliceDstRow, SliceDstCol).
	SliceSrcRow, SliceSrcCol int
	SliceDstRow, SliceDstCol int
	SliceRows, SliceCols     int
}

// Instruction is an immutable record of one opcode invocation. Inputs
// and outputs are referenced by tensor identity; the same tensor may
// appear as both, expressing an in-place update.
type Instruction struct {
	OpCode     OpCode
	Inputs     []*tensor.Tensor
	Outputs    []*tensor.Tensor
	Category   Category
	Attributes Attributes
}

// New builds an immutable instruction. Instructions are never mutated
// after construction.
func New(op OpCode, category Category, inputs, outputs []*tensor.Tensor, attrs Attributes) Instruction {
	return Instruction{
		OpCode:     op,
		Inputs:     inputs,
		Outputs:    outputs,
		Category:   category,
		Attributes: attrs,
	}
}

// Simple is an instruction's projection to the names it reads and
// writes — the only data the stream planner needs.
type Simple struct {
	Inputs  []int64
	Outputs []int64
}

// ToSimple projects an Instruction to its Simple form.
func (in Instruction) ToSimple() Simple {
	s := Simple{
		Inputs:  make([]int64, len(in.Inputs)),
		Outputs: make([]int64, len(in.Outputs)),
	}
	for i, t := range in.Inputs {
		s.Inputs[i] = t.Name()
	}
	for i, t := range in.Outputs {
		s.Outputs[i] = t.Name()
	}
	return s
}

// Partition splits a linear instruction list into four lists, one per
// category, preserving relative order within each category.
func Partition(instructions []Instruction) map[Category][]Instruction {
	out := map[Category][]Instruction{
		Inference:    nil,
		Loss:         nil,
		Gradient:     nil,
		Optimization: nil,
	}
	for _, in := range instructions {
		out[in.Category] = append(out[in.Category], in)
	}
	return out
}
