package device

import (
	"math"
	"math/rand"

	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// CPU is the pure-Go reference Backend. It is the fallback path used
// whenever GonumCPU cannot serve a Gemm call (an aliased output or
// transC set), and
// the only path for every other kernel — gonum's dense matrix type
// does not model the rest of the kernel set any better than a plain
// loop would.
type CPU struct {
	rng *rand.Rand
}

// NewCPU returns a CPU backend seeded for reproducible Bernoulli
// sampling.
func NewCPU(seed int64) *CPU {
	return &CPU{rng: rand.New(rand.NewSource(seed))}
}

func (c *CPU) Copy(src, dst *tensor.Tensor) error {
	// Copy tolerates a differing row/col split as long as the element
	// count matches: this is what lets the Reshape builder express its
	// copying semantics (spec.md 9) as a plain Copy instruction instead
	// of a dedicated opcode.
	if src.Len() != dst.Len() {
		return NewIncompatibleShapes("Copy", "src and dst element counts differ")
	}
	if src == dst {
		return nil
	}
	copy(dst.Data, src.Data)
	return nil
}

func (c *CPU) CopySlice(src *tensor.Tensor, sr, sc int, dst *tensor.Tensor, dr, dc, rows, cols int) error {
	if sr+rows > src.Rows || sc+cols > src.Cols || dr+rows > dst.Rows || dc+cols > dst.Cols {
		return NewIncompatibleShapes("CopySlice", "slice extends past tensor bounds")
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(dr+i, dc+j, src.At(sr+i, sc+j))
		}
	}
	return nil
}

func gemmDims(transA bool, a *tensor.Tensor) (rows, cols int) {
	if transA {
		return a.Cols, a.Rows
	}
	return a.Rows, a.Cols
}

func (c *CPU) Gemm(transA, transB bool, alpha float32, a, b *tensor.Tensor, beta float32, out *tensor.Tensor, transC bool) error {
	aRows, aCols := gemmDims(transA, a)
	bRows, bCols := gemmDims(transB, b)
	if aCols != bRows {
		return NewIncompatibleShapes("Gemm", "inner dimensions mismatch")
	}
	cRows, cCols := aRows, bCols
	if transC {
		cRows, cCols = cCols, cRows
	}
	if out.Rows != cRows || out.Cols != cCols {
		return NewIncompatibleShapes("Gemm", "output shape mismatch")
	}

	aElem := func(i, k int) float32 {
		if transA {
			return a.At(k, i)
		}
		return a.At(i, k)
	}
	bElem := func(k, j int) float32 {
		if transB {
			return b.At(j, k)
		}
		return b.At(k, j)
	}

	result := make([]float32, aRows*bCols)
	for i := 0; i < aRows; i++ {
		for j := 0; j < bCols; j++ {
			var sum float32
			for k := 0; k < aCols; k++ {
				sum += aElem(i, k) * bElem(k, j)
			}
			result[i*bCols+j] = sum
		}
	}

	for i := 0; i < aRows; i++ {
		for j := 0; j < bCols; j++ {
			oi, oj := i, j
			if transC {
				oi, oj = j, i
			}
			prev := out.At(oi, oj)
			out.Set(oi, oj, alpha*result[i*bCols+j]+beta*prev)
		}
	}
	return nil
}

func (c *CPU) ScalarMul(alpha *tensor.Tensor, x *tensor.Tensor) error {
	if alpha.Len() != 1 {
		return NewIncompatibleShapes("ScalarMul", "alpha must be 1x1")
	}
	a := alpha.Data[0]
	for i := range x.Data {
		x.Data[i] *= a
	}
	return nil
}

func elementwise(op string, a, b, out *tensor.Tensor, f func(x, y float32) float32) error {
	if !a.SameShape(b) || !a.SameShape(out) {
		return NewIncompatibleShapes(op, "operand shapes differ")
	}
	for i := range a.Data {
		out.Data[i] = f(a.Data[i], b.Data[i])
	}
	return nil
}

func (c *CPU) Add(a, b, out *tensor.Tensor) error {
	return elementwise("Add", a, b, out, func(x, y float32) float32 { return x + y })
}

func (c *CPU) Sub(a, b, out *tensor.Tensor) error {
	return elementwise("Sub", a, b, out, func(x, y float32) float32 { return x - y })
}

func (c *CPU) Mul(a, b, out *tensor.Tensor) error {
	return elementwise("Mul", a, b, out, func(x, y float32) float32 { return x * y })
}

func (c *CPU) Div(a, b, out *tensor.Tensor) error {
	return elementwise("Div", a, b, out, func(x, y float32) float32 { return x / y })
}

func (c *CPU) Sigmoid(in, out *tensor.Tensor) error {
	if !in.SameShape(out) {
		return NewIncompatibleShapes("Sigmoid", "input and output shapes differ")
	}
	for i, v := range in.Data {
		out.Data[i] = 1 / (1 + float32(math.Exp(float64(-v))))
	}
	return nil
}

func (c *CPU) Softmax(in, out *tensor.Tensor) error {
	if !in.SameShape(out) {
		return NewIncompatibleShapes("Softmax", "input and output shapes differ")
	}
	for i := 0; i < in.Rows; i++ {
		max := float32(math.Inf(-1))
		for j := 0; j < in.Cols; j++ {
			if v := in.At(i, j); v > max {
				max = v
			}
		}
		var sum float32
		row := make([]float32, in.Cols)
		for j := 0; j < in.Cols; j++ {
			e := float32(math.Exp(float64(in.At(i, j) - max)))
			row[j] = e
			sum += e
		}
		for j := 0; j < in.Cols; j++ {
			out.Set(i, j, row[j]/sum)
		}
	}
	return nil
}

// crossEntropyEpsilon is spec.md 4.A's numerical floor added to each
// actual probability before ln.
const crossEntropyEpsilon = 1e-8

func (c *CPU) CrossEntropyLoss(expected, actual, out *tensor.Tensor) error {
	if !expected.SameShape(actual) {
		return NewIncompatibleShapes("CrossEntropyLoss", "expected and actual shapes differ")
	}
	if out.Len() != 1 {
		return NewIncompatibleShapes("CrossEntropyLoss", "out must be 1x1")
	}
	var loss float32
	for i := range actual.Data {
		loss -= expected.Data[i] * float32(math.Log(float64(actual.Data[i]+crossEntropyEpsilon)))
	}
	out.Data[0] = loss
	return nil
}

func (c *CPU) Bernoulli(probs, mask *tensor.Tensor) error {
	if !probs.SameShape(mask) {
		return NewIncompatibleShapes("Bernoulli", "probs and mask shapes differ")
	}
	for i, p := range probs.Data {
		if c.rng.Float64() < float64(p) {
			mask.Data[i] = 1
		} else {
			mask.Data[i] = 0
		}
	}
	return nil
}

func (c *CPU) Clip(min, max float32, in, out *tensor.Tensor) error {
	if !in.SameShape(out) {
		return NewIncompatibleShapes("Clip", "input and output shapes differ")
	}
	for i, v := range in.Data {
		if v < min {
			v = min
		} else if v > max {
			v = max
		}
		out.Data[i] = v
	}
	return nil
}

func (c *CPU) ClipNorm(in, out *tensor.Tensor) error {
	if !in.SameShape(out) {
		return NewIncompatibleShapes("ClipNorm", "input and output shapes differ")
	}
	var sumSq float64
	for _, v := range in.Data {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm <= 1 {
		if in != out {
			copy(out.Data, in.Data)
		}
		return nil
	}
	scale := float32(1 / norm)
	for i, v := range in.Data {
		out.Data[i] = v * scale
	}
	return nil
}

func (c *CPU) Mask(in, out *tensor.Tensor) error {
	if !in.SameShape(out) {
		return NewIncompatibleShapes("Mask", "input and output shapes differ")
	}
	for i := 0; i < in.Rows; i++ {
		for j := 0; j < in.Cols; j++ {
			if i <= j {
				out.Set(i, j, 0)
			} else if in != out {
				out.Set(i, j, in.At(i, j))
			}
		}
	}
	return nil
}

func (c *CPU) Concat(tiles []*tensor.Tensor, out *tensor.Tensor) error {
	if len(tiles) == 0 {
		return NewIncompatibleShapes("Concat", "no tiles given")
	}
	rows := tiles[0].Rows
	totalCols := 0
	for _, t := range tiles {
		if t.Rows != rows {
			return NewIncompatibleShapes("Concat", "tiles must share row count")
		}
		totalCols += t.Cols
	}
	if out.Rows != rows || out.Cols != totalCols {
		return NewIncompatibleShapes("Concat", "output shape does not match concatenated tiles")
	}
	col := 0
	for _, t := range tiles {
		for i := 0; i < rows; i++ {
			for j := 0; j < t.Cols; j++ {
				out.Set(i, col+j, t.At(i, j))
			}
		}
		col += t.Cols
	}
	return nil
}

func (c *CPU) Unconcat(in *tensor.Tensor, tiles []*tensor.Tensor) error {
	totalCols := 0
	for _, t := range tiles {
		if t.Rows != in.Rows {
			return NewIncompatibleShapes("Unconcat", "tiles must share row count with input")
		}
		totalCols += t.Cols
	}
	if in.Cols != totalCols {
		return NewIncompatibleShapes("Unconcat", "input column count does not match tiles")
	}
	col := 0
	for _, t := range tiles {
		for i := 0; i < in.Rows; i++ {
			for j := 0; j < t.Cols; j++ {
				t.Set(i, j, in.At(i, col+j))
			}
		}
		col += t.Cols
	}
	return nil
}

func (c *CPU) AdamStep(theta, grad, m, v, step *tensor.Tensor, beta1, beta2, eps, lr float32) error {
	if !theta.SameShape(grad) || !theta.SameShape(m) || !theta.SameShape(v) {
		return NewIncompatibleShapes("AdamStep", "theta, grad, m, v must share shape")
	}
	if step.Len() != 1 {
		return NewIncompatibleShapes("AdamStep", "step must be 1x1")
	}
	t := step.Data[0] + 1
	step.Data[0] = t

	beta1Corr := 1 - float32(math.Pow(float64(beta1), float64(t)))
	beta2Corr := 1 - float32(math.Pow(float64(beta2), float64(t)))

	for i := range theta.Data {
		g := grad.Data[i]
		m.Data[i] = beta1*m.Data[i] + (1-beta1)*g
		v.Data[i] = beta2*v.Data[i] + (1-beta2)*g*g

		mHat := m.Data[i] / beta1Corr
		vHat := v.Data[i] / beta2Corr

		theta.Data[i] -= lr * mHat / (float32(math.Sqrt(float64(vHat))) + eps)
	}
	return nil
}
