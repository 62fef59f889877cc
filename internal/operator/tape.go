package operator

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Tape returns the forward-topological ordering of every TensorWithGrad
// reachable from root via its Inputs edges: every node's inputs appear
// earlier than the node itself. The program assembler walks this list
// forward to linearize forward_instructions and backward (from the
// end) to linearize gradient_instructions, per spec.md 4.F.
func Tape(root *TensorWithGrad) []*TensorWithGrad {
	visited := make(map[*TensorWithGrad]bool)
	order := make([]*TensorWithGrad, 0)

	var visit func(n *TensorWithGrad)
	visit = func(n *TensorWithGrad) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, in := range n.Inputs {
			visit(in)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}

// LinearizeForward concatenates the forward_instructions of every node
// in tape order.
func LinearizeForward(tape []*TensorWithGrad) []instruction.Instruction {
	var out []instruction.Instruction
	for _, n := range tape {
		out = append(out, n.ForwardInstructions...)
	}
	return out
}

// LinearizeGradient walks tape in reverse and, for each node, appends
// its gradient_instructions followed by one ClipNorm per gradient
// output of that instruction — spec.md 4.F step 3's bound on gradient
// norms.
func LinearizeGradient(tape []*TensorWithGrad) []instruction.Instruction {
	var out []instruction.Instruction
	for i := len(tape) - 1; i >= 0; i-- {
		for _, in := range tape[i].GradientInstructions {
			out = append(out, in)
			for _, g := range in.Outputs {
				out = append(out, instruction.New(
					instruction.ClipNorm, instruction.Gradient,
					[]*tensor.Tensor{g}, []*tensor.Tensor{g},
					instruction.Attributes{},
				))
			}
		}
	}
	return out
}
