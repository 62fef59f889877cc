// Package train drives a machine.NeuralMachine through epochs of a
// dataloader.DataLoader, reporting progress through the Callback
// observer pattern. Adapted from the teacher's pkg/train: the same
// Callback/CallbackList/TrainingContext shape, retargeted from a
// graph.Node/layers.Module model at direct NeuralMachine step calls.
package train

import (
	"fmt"

	"github.com/tapegraph/neuralmachine/internal/machine"
	"github.com/tapegraph/neuralmachine/pkg/dataloader"
)

// TrainingContext is passed to every callback hook; it mutates in
// place as Session.Train runs so callbacks observe live state.
type TrainingContext struct {
	Epoch, NumEpochs int
	Batch            int
	Loss             float64
	StopTraining     bool
}

// Callback observes the training loop at epoch and batch boundaries,
// mirroring Keras-style hooks.
type Callback interface {
	OnTrainBegin(ctx *TrainingContext) error
	OnTrainEnd(ctx *TrainingContext) error
	OnEpochBegin(ctx *TrainingContext) error
	OnEpochEnd(ctx *TrainingContext) error
	OnBatchEnd(ctx *TrainingContext) error
}

// CallbackList fans a loop event out to every registered Callback, in
// registration order, stopping at the first error.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList returns a CallbackList over the given callbacks.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

func (cl *CallbackList) fire(f func(Callback) error) error {
	for _, cb := range cl.callbacks {
		if err := f(cb); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) onTrainBegin(ctx *TrainingContext) error {
	return cl.fire(func(cb Callback) error { return cb.OnTrainBegin(ctx) })
}
func (cl *CallbackList) onTrainEnd(ctx *TrainingContext) error {
	return cl.fire(func(cb Callback) error { return cb.OnTrainEnd(ctx) })
}
func (cl *CallbackList) onEpochBegin(ctx *TrainingContext) error {
	return cl.fire(func(cb Callback) error { return cb.OnEpochBegin(ctx) })
}
func (cl *CallbackList) onEpochEnd(ctx *TrainingContext) error {
	return cl.fire(func(cb Callback) error { return cb.OnEpochEnd(ctx) })
}
func (cl *CallbackList) onBatchEnd(ctx *TrainingContext) error {
	return cl.fire(func(cb Callback) error { return cb.OnBatchEnd(ctx) })
}

// Session wires a NeuralMachine, a DataLoader and a set of named
// inputs/target together into a runnable training loop.
type Session struct {
	Machine    *machine.NeuralMachine
	Loader     *dataloader.DataLoader
	InputName  string
	TargetName string
	Callbacks  *CallbackList
	NumEpochs  int
}

// Train runs NumEpochs epochs over Loader, writing each batch's
// features and targets into the machine and calling Optimize once per
// batch.
func (s *Session) Train() error {
	ctx := &TrainingContext{NumEpochs: s.NumEpochs}
	if s.Callbacks == nil {
		s.Callbacks = NewCallbackList()
	}
	if err := s.Callbacks.onTrainBegin(ctx); err != nil {
		return err
	}

	for epoch := 0; epoch < s.NumEpochs; epoch++ {
		ctx.Epoch = epoch
		ctx.Batch = 0
		if err := s.Callbacks.onEpochBegin(ctx); err != nil {
			return err
		}

		s.Loader.Reset()
		for s.Loader.HasNext() {
			batch := s.Loader.Next()
			if err := s.Machine.WriteInput(s.InputName, batch.Features); err != nil {
				return fmt.Errorf("train: write input: %w", err)
			}
			if err := s.Machine.WriteInput(s.TargetName, batch.Targets); err != nil {
				return fmt.Errorf("train: write target: %w", err)
			}
			loss, err := s.Machine.Loss()
			if err != nil {
				return fmt.Errorf("train: loss: %w", err)
			}
			ctx.Loss = float64(loss)
			if err := s.Machine.Optimize(); err != nil {
				return fmt.Errorf("train: optimize: %w", err)
			}
			ctx.Batch++
			if err := s.Callbacks.onBatchEnd(ctx); err != nil {
				return err
			}
		}

		if err := s.Callbacks.onEpochEnd(ctx); err != nil {
			return err
		}
		if ctx.StopTraining {
			break
		}
	}
	return s.Callbacks.onTrainEnd(ctx)
}
