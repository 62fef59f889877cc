package machine

import (
	"errors"
	"fmt"

	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/instruction"
	"github.com/tapegraph/neuralmachine/internal/operator"
	"github.com/tapegraph/neuralmachine/internal/optimizer"
	"github.com/tapegraph/neuralmachine/internal/scheduler"
	"github.com/tapegraph/neuralmachine/internal/tensor"
	"github.com/tapegraph/neuralmachine/pkg/config"
	"github.com/tapegraph/neuralmachine/pkg/telemetry"
)

// stage tracks where in the Infer -> Loss -> ComputeGradient -> Optimize
// sequence the machine is, so each call first runs any earlier step it
// depends on that has not yet run, rather than silently executing
// against stale buffers.
type stage int

const (
	stageReady stage = iota
	stageInferred
	stageLossed
	stageGraded
)

// ModelFunc builds a model's forward graph: it allocates (or reuses)
// input leaves and returns the graph's predicted-output node. Called
// exactly once, at TryNew.
type ModelFunc func(ctx *operator.Context) (inputs map[string]*operator.TensorWithGrad, predicted *operator.TensorWithGrad, err error)

// LossFunc attaches a loss node to predicted. Called exactly once, at
// TryNew.
type LossFunc func(ctx *operator.Context, predicted *operator.TensorWithGrad) (expected *operator.TensorWithGrad, loss *operator.TensorWithGrad, err error)

// NeuralMachine is the external interface of spec.md §6: a graph built
// once at TryNew and then driven, one training step at a time, through
// Infer, Loss, ComputeGradient and Optimize.
type NeuralMachine struct {
	ctx     *operator.Context
	backend device.Backend
	sched   *scheduler.Scheduler
	tel     *telemetry.Telemetry

	inputs    map[string]*operator.TensorWithGrad
	predicted *operator.TensorWithGrad
	expected  *operator.TensorWithGrad
	loss      *operator.TensorWithGrad

	program *Program
	stage   stage
}

func newBackend(name string, seed int64) (device.Backend, error) {
	switch name {
	case "cpu":
		return device.NewCPU(seed), nil
	case "gonum":
		return device.NewGonumCPU(seed), nil
	default:
		return nil, fmt.Errorf("machine: unknown backend %q", name)
	}
}

func newOptimizer(cfg config.OptimizerConfig) (optimizer.Optimizer, error) {
	switch cfg.Name {
	case "adam":
		return optimizer.NewAdam(cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon), nil
	case "sgd":
		return optimizer.NewGradientDescent(cfg.LearningRate), nil
	default:
		return nil, fmt.Errorf("machine: unknown optimizer %q", cfg.Name)
	}
}

// TryNew builds the backend and optimizer from cfg, invokes model and
// loss to construct the differentiable graph exactly once, and
// assembles the resulting instruction program. It is the one
// fallible constructor spec.md 4.F's "no hidden allocation" invariant
// depends on: every buffer a training step will ever touch is
// allocated here.
func TryNew(cfg config.MachineConfig, model ModelFunc, loss LossFunc) (*NeuralMachine, error) {
	backend, err := newBackend(cfg.Backend, cfg.Seed)
	if err != nil {
		return nil, err
	}
	opt, err := newOptimizer(cfg.Optimizer)
	if err != nil {
		return nil, err
	}

	ctx := operator.NewContext(tensor.NewStore())
	inputs, predicted, err := model(ctx)
	if err != nil {
		return nil, fmt.Errorf("machine: model: %w", err)
	}
	if predicted == nil {
		return nil, errors.New("machine: model returned a nil predicted node")
	}
	expected, lossNode, err := loss(ctx, predicted)
	if err != nil {
		return nil, fmt.Errorf("machine: loss: %w", err)
	}
	if lossNode == nil || lossNode.Value.Len() != 1 {
		return nil, errors.New("machine: loss node must be scalar (1x1)")
	}
	if _, clash := inputs["expected"]; clash {
		return nil, errors.New(`machine: model must not register an input named "expected"`)
	}
	inputs["expected"] = expected

	tel := telemetry.New()
	program := Assemble(ctx, lossNode, opt)
	tel.ObserveProgram(program.Raw)

	return &NeuralMachine{
		ctx:       ctx,
		backend:   backend,
		sched:     scheduler.New(backend, cfg.ExecutionUnits),
		tel:       tel,
		inputs:    inputs,
		predicted: predicted,
		expected:  expected,
		loss:      lossNode,
		program:   program,
		stage:     stageReady,
	}, nil
}

// WriteInput copies data into the named input tensor, validating that
// its length matches the tensor's allocated element count — the
// machine's inputs are fixed buffers reused every step, never
// reallocated, so a length mismatch is a caller bug rather than a shape
// the machine can silently grow into.
func (m *NeuralMachine) WriteInput(name string, data []float32) error {
	t, ok := m.inputs[name]
	if !ok {
		return fmt.Errorf("machine: no input named %q", name)
	}
	if len(data) != t.Value.Len() {
		return fmt.Errorf("machine: input %q expects %d elements, got %d", name, t.Value.Len(), len(data))
	}
	copy(t.Value.Data, data)
	m.stage = stageReady
	return nil
}

func (m *NeuralMachine) runCategory(op string, category instruction.Category) error {
	done := m.tel.Timer(op)
	defer done()
	plan, ok := m.program.Plans[category]
	if !ok || plan == nil {
		return nil
	}
	return m.sched.Run(plan)
}

// Infer runs the Inference-category instructions, populating
// Predicted(). It may be called without ever calling Loss or
// ComputeGradient, for inference-only use.
func (m *NeuralMachine) Infer() error {
	if err := m.runCategory("infer", instruction.Inference); err != nil {
		return err
	}
	m.stage = stageInferred
	return nil
}

// Predicted returns the model's output tensor, valid after Infer.
func (m *NeuralMachine) Predicted() *tensor.Tensor { return m.predicted.Value }

// Context exposes the machine's parameter registry for checkpointing
// (see pkg/api). Callers must not mutate its shape, only the data of
// the tensors it already holds.
func (m *NeuralMachine) Context() *operator.Context { return m.ctx }

// Loss runs Infer (if it has not already run this step) followed by
// the Loss-category instructions, returning the scalar loss value.
func (m *NeuralMachine) Loss() (float32, error) {
	if m.stage == stageReady {
		if err := m.Infer(); err != nil {
			return 0, err
		}
	}
	if err := m.runCategory("loss", instruction.Loss); err != nil {
		return 0, err
	}
	m.stage = stageLossed
	return m.loss.Value.At(0, 0), nil
}

// ComputeGradient runs Loss (if it has not already run this step)
// followed by the Gradient-category instructions, populating every
// node's and parameter's Gradient buffer.
func (m *NeuralMachine) ComputeGradient() error {
	if m.stage == stageReady || m.stage == stageInferred {
		if _, err := m.Loss(); err != nil {
			return err
		}
	}
	if err := m.runCategory("compute_gradient", instruction.Gradient); err != nil {
		return err
	}
	m.stage = stageGraded
	return nil
}

// Optimize runs ComputeGradient (if it has not already run this step)
// followed by the Optimization-category instructions, updating every
// parameter in place, then resets the machine's stage so the next call
// to Infer starts a fresh step.
func (m *NeuralMachine) Optimize() error {
	if m.stage != stageGraded {
		if err := m.ComputeGradient(); err != nil {
			return err
		}
	}
	if err := m.runCategory("optimize", instruction.Optimization); err != nil {
		return err
	}
	m.stage = stageReady
	return nil
}
