package device

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// GonumCPU is the accelerated Backend: every kernel except Gemm
// delegates to CPU, and Gemm itself is expressed over gonum/mat.Dense
// whenever the output does not alias an input and transC is unset.
// Aliased Gemm calls (accumulating gradients into a tensor that is also
// read, beta=1) fall back to CPU.Gemm, since mat.Dense.Mul does not
// tolerate its receiver aliasing its own operands; calls with transC
// set fall back to CPU.Gemm as well.
type GonumCPU struct {
	*CPU
}

// NewGonumCPU returns an accelerated backend seeded for reproducible
// Bernoulli sampling.
func NewGonumCPU(seed int64) *GonumCPU {
	return &GonumCPU{CPU: NewCPU(seed)}
}

func aliases(out *tensor.Tensor, a, b *tensor.Tensor) bool {
	return out == a || out == b
}

func toDense(t *tensor.Tensor, transpose bool) *mat.Dense {
	d := mat.NewDense(t.Rows, t.Cols, toFloat64(t.Data))
	if transpose {
		var td mat.Dense
		td.CloneFrom(d.T())
		return &td
	}
	return d
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func (g *GonumCPU) Gemm(transA, transB bool, alpha float32, a, b *tensor.Tensor, beta float32, out *tensor.Tensor, transC bool) error {
	if transC || aliases(out, a, b) {
		return g.CPU.Gemm(transA, transB, alpha, a, b, beta, out, transC)
	}

	aRows, aCols := gemmDims(transA, a)
	bRows, bCols := gemmDims(transB, b)
	if aCols != bRows {
		return NewIncompatibleShapes("Gemm", "inner dimensions mismatch")
	}
	if out.Rows != aRows || out.Cols != bCols {
		return NewIncompatibleShapes("Gemm", "output shape mismatch")
	}

	ad := toDense(a, transA)
	bd := toDense(b, transB)

	var product mat.Dense
	product.Mul(ad, bd)

	for i := 0; i < aRows; i++ {
		for j := 0; j < bCols; j++ {
			prev := out.At(i, j)
			out.Set(i, j, alpha*float32(product.At(i, j))+beta*prev)
		}
	}
	return nil
}
