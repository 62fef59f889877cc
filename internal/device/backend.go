// Package device implements the abstract kernel set of spec.md 4.A:
// the one surface the operator catalog (internal/instruction +
// internal/operator) calls through. Every kernel tolerates aliasing
// between its inputs and outputs — the instruction program routinely
// reuses a tensor as both operand and destination for in-place
// updates.
package device

import "github.com/tapegraph/neuralmachine/internal/tensor"

// Backend is the contract a CPU or GPU kernel set must satisfy. A
// program built against one Backend runs unmodified against another.
type Backend interface {
	// Copy copies src into dst. Element counts must match; the row/col
	// split may differ.
	Copy(src, dst *tensor.Tensor) error

	// CopySlice copies a rows x cols block from src at (sr, sc) into
	// dst at (dr, dc).
	CopySlice(src *tensor.Tensor, sr, sc int, dst *tensor.Tensor, dr, dc, rows, cols int) error

	// Gemm computes C <- alpha*op(A)*op(B) + beta*C, where op(X) is X or
	// Xt depending on the trans flags. With transC the product is
	// written transposed, C <- alpha*(op(A)*op(B))t + beta*C, so C has
	// the product's shape swapped (used by a small number of backward
	// Gemms).
	Gemm(transA, transB bool, alpha float32, a, b *tensor.Tensor, beta float32, c *tensor.Tensor, transC bool) error

	// ScalarMul overwrites x with alpha*x; alpha is a 1x1 tensor.
	ScalarMul(alpha *tensor.Tensor, x *tensor.Tensor) error

	// Add, Sub, Mul, Div are elementwise binary kernels: out <- a OP b.
	// out may alias a or b.
	Add(a, b, out *tensor.Tensor) error
	Sub(a, b, out *tensor.Tensor) error
	Mul(a, b, out *tensor.Tensor) error
	Div(a, b, out *tensor.Tensor) error

	// Softmax computes a numerically stable row-wise softmax.
	Softmax(in, out *tensor.Tensor) error

	// Sigmoid computes the elementwise logistic function, writing out.
	Sigmoid(in, out *tensor.Tensor) error

	// CrossEntropyLoss computes a scalar loss from one-hot expected
	// values and softmax probabilities (not logits): out is 1x1.
	CrossEntropyLoss(expected, actual, out *tensor.Tensor) error

	// Bernoulli samples {0,1}^shape into mask given per-element
	// keep-probabilities.
	Bernoulli(probs, mask *tensor.Tensor) error

	// Clip clamps every element of in into [min, max], writing out.
	Clip(min, max float32, in, out *tensor.Tensor) error

	// ClipNorm scales in so that its L2 norm is <= 1, writing out.
	ClipNorm(in, out *tensor.Tensor) error

	// Mask zeroes the strict upper triangle (i <= j) of in, writing
	// out; used to make attention scores causal.
	Mask(in, out *tensor.Tensor) error

	// Concat horizontally concatenates equally-sized tiles into out.
	Concat(tiles []*tensor.Tensor, out *tensor.Tensor) error

	// Unconcat is the inverse of Concat: it splits in into the given
	// tiles.
	Unconcat(in *tensor.Tensor, tiles []*tensor.Tensor) error

	// AdamStep performs one Adam update (spec.md 4.I) over a single
	// parameter. step is a 1x1 tensor holding the step count before
	// this call; AdamStep increments it in place.
	AdamStep(theta, grad, m, v, step *tensor.Tensor, beta1, beta2, eps, lr float32) error
}
