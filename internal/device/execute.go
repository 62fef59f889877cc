package device

import "github.com/tapegraph/neuralmachine/internal/instruction"

// Execute is the single well-typed entry point spec.md 4.C requires:
// given an instruction and the backend it runs against, dispatch to
// the one kernel its opcode names.
func Execute(backend Backend, in instruction.Instruction) error {
	attrs := in.Attributes
	switch in.OpCode {
	case instruction.Gemm:
		return backend.Gemm(attrs.TransA, attrs.TransB, attrs.Alpha, in.Inputs[0], in.Inputs[1], attrs.Beta, in.Outputs[0], attrs.TransC)
	case instruction.ScalarMul:
		return backend.ScalarMul(in.Inputs[0], in.Outputs[0])
	case instruction.Softmax:
		return backend.Softmax(in.Inputs[0], in.Outputs[0])
	case instruction.Sigmoid:
		return backend.Sigmoid(in.Inputs[0], in.Outputs[0])
	case instruction.SoftmaxCrossEntropyLoss:
		return backend.CrossEntropyLoss(in.Inputs[0], in.Inputs[1], in.Outputs[0])
	case instruction.Add:
		return backend.Add(in.Inputs[0], in.Inputs[1], in.Outputs[0])
	case instruction.Sub:
		return backend.Sub(in.Inputs[0], in.Inputs[1], in.Outputs[0])
	case instruction.Mul:
		return backend.Mul(in.Inputs[0], in.Inputs[1], in.Outputs[0])
	case instruction.Div:
		return backend.Div(in.Inputs[0], in.Inputs[1], in.Outputs[0])
	case instruction.Concat:
		return backend.Concat(in.Inputs, in.Outputs[0])
	case instruction.Unconcat:
		return backend.Unconcat(in.Inputs[0], in.Outputs)
	case instruction.Bernoulli:
		return backend.Bernoulli(in.Inputs[0], in.Outputs[0])
	case instruction.ClipNorm:
		return backend.ClipNorm(in.Inputs[0], in.Outputs[0])
	case instruction.Mask:
		return backend.Mask(in.Inputs[0], in.Outputs[0])
	case instruction.Copy:
		return backend.Copy(in.Inputs[0], in.Outputs[0])
	case instruction.CopySlice:
		return backend.CopySlice(in.Inputs[0], attrs.SliceSrcRow, attrs.SliceSrcCol, in.Outputs[0], attrs.SliceDstRow, attrs.SliceDstCol, attrs.SliceRows, attrs.SliceCols)
	case instruction.AdamStep:
		theta, grad, m, v, step := in.Inputs[0], in.Inputs[1], in.Inputs[2], in.Inputs[3], in.Inputs[4]
		return backend.AdamStep(theta, grad, m, v, step, attrs.Beta1, attrs.Beta2, attrs.Epsilon, attrs.LearningRate)
	default:
		return NewUnsupported(in.OpCode.String(), "no dispatch registered")
	}
}
