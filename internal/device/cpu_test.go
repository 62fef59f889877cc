package device

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapegraph/neuralmachine/internal/tensor"
)

func naiveMatMul(t *testing.T, a, b *tensor.Tensor) *tensor.Tensor {
	t.Helper()
	require.Equal(t, a.Cols, b.Rows)
	out := tensor.New(a.Rows, b.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			var sum float32
			for k := 0; k < a.Cols; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

func TestCPUGemmIdentityMatchesNaive(t *testing.T) {
	backend := NewCPU(1)
	a := tensor.New(2, 3)
	copy(a.Data, []float32{1, 2, 3, 4, 5, 6})
	b := tensor.New(3, 2)
	copy(b.Data, []float32{7, 8, 9, 10, 11, 12})

	want := naiveMatMul(t, a, b)
	out := tensor.New(2, 2)
	require.NoError(t, backend.Gemm(false, false, 1, a, b, 0, out, false))
	require.Equal(t, want.Data, out.Data)
}

func TestGonumGemmMatchesCPUGemm(t *testing.T) {
	cpu := NewCPU(1)
	gon := NewGonumCPU(1)

	a := tensor.New(4, 3)
	for i := range a.Data {
		a.Data[i] = float32(i) * 0.3
	}
	b := tensor.New(3, 5)
	for i := range b.Data {
		b.Data[i] = float32(i) * -0.2
	}

	wantOut := tensor.New(4, 5)
	gotOut := tensor.New(4, 5)
	require.NoError(t, cpu.Gemm(false, false, 1, a, b, 0, wantOut, false))
	require.NoError(t, gon.Gemm(false, false, 1, a, b, 0, gotOut, false))

	for i := range wantOut.Data {
		require.InDelta(t, wantOut.Data[i], gotOut.Data[i], 1e-4)
	}
}

func TestGemmAliasedOutputFallsBackInGonum(t *testing.T) {
	gon := NewGonumCPU(1)
	a := tensor.New(2, 2)
	copy(a.Data, []float32{1, 0, 0, 1})
	c := tensor.New(2, 2)
	copy(c.Data, []float32{1, 2, 3, 4})

	require.NoError(t, gon.Gemm(false, false, 1, a, c, 1, c, false))
	require.Equal(t, []float32{2, 4, 6, 8}, c.Data)
}

func TestSoftmaxRowsSumToOneAndShiftInvariant(t *testing.T) {
	backend := NewCPU(1)
	in := tensor.New(1, 4)
	copy(in.Data, []float32{1, 2, 3, 4})
	out := tensor.New(1, 4)
	require.NoError(t, backend.Softmax(in, out))

	var sum float32
	for _, v := range out.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-5)

	shifted := tensor.New(1, 4)
	copy(shifted.Data, []float32{101, 102, 103, 104})
	out2 := tensor.New(1, 4)
	require.NoError(t, backend.Softmax(shifted, out2))
	for i := range out.Data {
		require.InDelta(t, out.Data[i], out2.Data[i], 1e-5)
	}
}

func TestSoftmaxCrossEntropyMatchesNegLogLikelihood(t *testing.T) {
	backend := NewCPU(1)
	logits := tensor.New(1, 3)
	copy(logits.Data, []float32{1, 2, 3})
	probs := tensor.New(1, 3)
	require.NoError(t, backend.Softmax(logits, probs))

	expected := tensor.New(1, 3)
	expected.Data[2] = 1 // one-hot target = class 2

	loss := tensor.New(1, 1)
	require.NoError(t, backend.CrossEntropyLoss(expected, probs, loss))

	want := -math.Log(float64(probs.Data[2]))
	require.InDelta(t, want, loss.Data[0], 1e-5)
}

func TestSigmoidMatchesClosedForm(t *testing.T) {
	backend := NewCPU(1)
	in := tensor.New(1, 3)
	copy(in.Data, []float32{-2, 0, 2})
	out := tensor.New(1, 3)
	require.NoError(t, backend.Sigmoid(in, out))

	for i, x := range in.Data {
		want := 1 / (1 + math.Exp(float64(-x)))
		require.InDelta(t, want, out.Data[i], 1e-6)
	}
	require.InDelta(t, 0.5, out.Data[1], 1e-6)
}

func TestClipNormIdempotent(t *testing.T) {
	backend := NewCPU(1)
	in := tensor.New(1, 3)
	copy(in.Data, []float32{3, 4, 12})

	once := tensor.New(1, 3)
	require.NoError(t, backend.ClipNorm(in, once))
	twice := tensor.New(1, 3)
	require.NoError(t, backend.ClipNorm(once, twice))

	require.Equal(t, once.Data, twice.Data)

	var norm float64
	for _, v := range once.Data {
		norm += float64(v) * float64(v)
	}
	require.LessOrEqual(t, math.Sqrt(norm), 1.0+1e-6)
}

func TestMaskZeroesStrictUpperTriangle(t *testing.T) {
	backend := NewCPU(1)
	in := tensor.New(3, 3)
	for i := range in.Data {
		in.Data[i] = 1
	}
	out := tensor.New(3, 3)
	require.NoError(t, backend.Mask(in, out))

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i <= j {
				require.Equal(t, float32(0), out.At(i, j))
			} else {
				require.Equal(t, float32(1), out.At(i, j))
			}
		}
	}
}

func TestBernoulliShapeAndRange(t *testing.T) {
	backend := NewCPU(42)
	probs := tensor.NewFilled(4, 4, 0.5)
	mask := tensor.New(4, 4)
	require.NoError(t, backend.Bernoulli(probs, mask))
	for _, v := range mask.Data {
		require.True(t, v == 0 || v == 1)
	}
}

func TestAdamStepReducesLossDirection(t *testing.T) {
	backend := NewCPU(1)
	theta := tensor.New(1, 2)
	copy(theta.Data, []float32{1, -1})
	grad := tensor.New(1, 2)
	copy(grad.Data, []float32{1, -1})
	m := tensor.New(1, 2)
	v := tensor.New(1, 2)
	step := tensor.New(1, 1)

	require.NoError(t, backend.AdamStep(theta, grad, m, v, step, 0.9, 0.999, 1e-8, 0.1))
	require.Less(t, theta.Data[0], float32(1))
	require.Greater(t, theta.Data[1], float32(-1))
	require.Equal(t, float32(1), step.Data[0])
}

func TestConcatUnconcatRoundTrip(t *testing.T) {
	backend := NewCPU(1)
	a := tensor.New(2, 1)
	copy(a.Data, []float32{1, 2})
	b := tensor.New(2, 2)
	copy(b.Data, []float32{3, 4, 5, 6})

	out := tensor.New(2, 3)
	require.NoError(t, backend.Concat([]*tensor.Tensor{a, b}, out))
	require.Equal(t, []float32{1, 3, 4, 2, 5, 6}, out.Data)

	a2 := tensor.New(2, 1)
	b2 := tensor.New(2, 2)
	require.NoError(t, backend.Unconcat(out, []*tensor.Tensor{a2, b2}))
	require.Equal(t, a.Data, a2.Data)
	require.Equal(t, b.Data, b2.Data)
}
