package operator

import (
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Embedding is a row-lookup table builder: a vocabSize x dim parameter
// matrix, read one row per token id. The closed opcode set has no
// gather/scatter-add primitive, so lookup and its gradient accumulation
// are both expressed with CopySlice plus Add: forward copies the
// looked-up row out of the table, backward reads the table's current
// gradient row, adds the incoming row gradient, and copies the sum back
// — the same read-modify-write shape Linear's bias broadcast uses.
type Embedding struct {
	ctx   *Context
	Table *TensorWithGrad // vocabSize x dim
	Dim   int
}

// NewEmbedding allocates the table as a parameter and returns an
// Embedding builder.
func NewEmbedding(ctx *Context, vocabSize, dim int) *Embedding {
	return &Embedding{
		ctx:   ctx,
		Table: ctx.NewParameter(vocabSize, dim),
		Dim:   dim,
	}
}

// Forward returns the (len(ids), dim) tensor whose i-th row is the
// table row for ids[i].
func (e *Embedding) Forward(ids []int) (*TensorWithGrad, error) {
	for _, id := range ids {
		if id < 0 || id >= e.Table.Value.Rows {
			return nil, device.NewIncompatibleShapes("Embedding", "token id out of vocabulary range")
		}
	}
	out := newOutput(len(ids), e.Dim, e.Table)
	out.ForwardInstructions = append(out.ForwardInstructions, clearInstructions(e.ctx, out, instruction.Inference)...)
	for i, id := range ids {
		out.ForwardInstructions = append(out.ForwardInstructions, instruction.New(
			instruction.CopySlice, instruction.Inference,
			[]*tensor.Tensor{e.Table.Value}, []*tensor.Tensor{out.Value},
			instruction.Attributes{
				SliceSrcRow: id, SliceSrcCol: 0,
				SliceDstRow: i, SliceDstCol: 0,
				SliceRows: 1, SliceCols: e.Dim,
			},
		))
	}

	if e.Table.RequiresGrad() {
		for i, id := range ids {
			row := tensor.New(1, e.Dim)
			sum := tensor.New(1, e.Dim)
			out.GradientInstructions = append(out.GradientInstructions,
				instruction.New(instruction.CopySlice, instruction.Gradient, []*tensor.Tensor{e.Table.Gradient}, []*tensor.Tensor{row},
					instruction.Attributes{SliceSrcRow: id, SliceSrcCol: 0, SliceDstRow: 0, SliceDstCol: 0, SliceRows: 1, SliceCols: e.Dim}),
				instruction.New(instruction.CopySlice, instruction.Gradient, []*tensor.Tensor{out.Gradient}, []*tensor.Tensor{sum},
					instruction.Attributes{SliceSrcRow: i, SliceSrcCol: 0, SliceDstRow: 0, SliceDstCol: 0, SliceRows: 1, SliceCols: e.Dim}),
				instruction.New(instruction.Add, instruction.Gradient, []*tensor.Tensor{row, sum}, []*tensor.Tensor{sum}, instruction.Attributes{}),
				instruction.New(instruction.CopySlice, instruction.Gradient, []*tensor.Tensor{sum}, []*tensor.Tensor{e.Table.Gradient},
					instruction.Attributes{SliceSrcRow: 0, SliceSrcCol: 0, SliceDstRow: id, SliceDstCol: 0, SliceRows: 1, SliceCols: e.Dim}),
			)
		}
	}
	return out, nil
}
