package optimizer

import (
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// Adam is the Adaptive Moment Estimation optimizer of spec.md 4.I,
// grounded on the teacher's pkg/optimizers/adam.go update rule but
// reworked to emit one AdamStep instruction per parameter instead of
// mutating values directly: the backend kernel owns the moment-buffer
// math and bias correction, keyed off the per-parameter step counter
// it increments in place.
type Adam struct {
	LearningRate, Beta1, Beta2, Epsilon float32

	moments map[*tensor.Tensor]*adamState
}

type adamState struct {
	m, v *tensor.Tensor
	step *tensor.Tensor
}

// NewAdam returns an Adam optimizer with the given hyperparameters.
func NewAdam(lr, beta1, beta2, eps float32) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        beta1,
		Beta2:        beta2,
		Epsilon:      eps,
		moments:      make(map[*tensor.Tensor]*adamState),
	}
}

func (a *Adam) stateFor(p Param) *adamState {
	st, ok := a.moments[p.Value]
	if !ok {
		st = &adamState{
			m:    tensor.New(p.Value.Rows, p.Value.Cols),
			v:    tensor.New(p.Value.Rows, p.Value.Cols),
			step: tensor.New(1, 1),
		}
		a.moments[p.Value] = st
	}
	return st
}

// Instructions returns one AdamStep instruction per parameter, each
// reading and updating that parameter's own persistent m, v and step
// buffers.
func (a *Adam) Instructions(params []Param) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(params))
	for _, p := range params {
		st := a.stateFor(p)
		out = append(out, instruction.New(
			instruction.AdamStep, instruction.Optimization,
			[]*tensor.Tensor{p.Value, p.Gradient, st.m, st.v, st.step},
			[]*tensor.Tensor{p.Value, st.m, st.v, st.step},
			instruction.Attributes{Beta1: a.Beta1, Beta2: a.Beta2, Epsilon: a.Epsilon, LearningRate: a.LearningRate},
		))
	}
	return out
}
