package tensor

import "sync"

// Store is the device-wide parameter registry of spec.md 4.A: every
// tensor allocated with is_parameter=true is recorded here. Optimizers
// do not read the Store; the assembler hands them the operator
// context's parameter list instead. TryNew creates one Store per
// machine, and it lives as long as that machine.
type Store struct {
	mu         sync.Mutex
	parameters []*Tensor
}

// NewStore returns an empty parameter registry.
func NewStore() *Store {
	return &Store{}
}

// NewParameter allocates a tensor marked is_parameter=true,
// requires_grad=true and registers it. Builders call this for weights,
// biases, and embedding tables.
func (s *Store) NewParameter(rows, cols int) *Tensor {
	t := New(rows, cols)
	t.IsParameter = true
	t.RequiresGrad = true
	s.mu.Lock()
	s.parameters = append(s.parameters, t)
	s.mu.Unlock()
	return t
}

// Parameters returns the registered parameter tensors in registration
// order.
func (s *Store) Parameters() []*Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Tensor, len(s.parameters))
	copy(out, s.parameters)
	return out
}
