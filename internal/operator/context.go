package operator

import "github.com/tapegraph/neuralmachine/internal/tensor"

// Context is the shared graph-build state every builder threads
// through: the parameter registry new weights/biases/embedding tables
// register into, and a single shared zero-scalar constant the clear
// instructions read from (it is never written, so sharing it across
// every ScalarMul(0) in the program is safe).
type Context struct {
	Store  *tensor.Store
	zero   *tensor.Tensor
	Params []*TensorWithGrad
}

// NewContext returns a graph-build context backed by store.
func NewContext(store *tensor.Store) *Context {
	return &Context{Store: store}
}

// NewParameter allocates a parameter tensor in the store, wraps it in a
// TensorWithGrad so builders can thread its persistent gradient buffer
// through Forward calls, and registers the wrapper so the optimizer and
// program assembler can enumerate every parameter's gradient tensor —
// the Store alone only tracks raw values, not their gradient pairing.
func (c *Context) NewParameter(rows, cols int) *TensorWithGrad {
	p := Leaf(c.Store.NewParameter(rows, cols))
	c.Params = append(c.Params, p)
	return p
}

// ZeroScalar returns the shared 1x1 zero constant, allocating it on
// first use.
func (c *Context) ZeroScalar() *tensor.Tensor {
	if c.zero == nil {
		c.zero = tensor.New(1, 1)
	}
	return c.zero
}

// Constant allocates a 1x1 tensor holding v, for use as a ScalarMul
// alpha operand that is not zero (e.g. dropout's 1/(1-p) rescale).
func Constant(v float32) *tensor.Tensor {
	return tensor.NewFilled(1, 1, v)
}
