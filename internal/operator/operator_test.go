package operator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

func runForward(t *testing.T, backend device.Backend, out *TensorWithGrad) {
	t.Helper()
	for _, in := range LinearizeForward(Tape(out)) {
		require.NoError(t, device.Execute(backend, in))
	}
}

func TestLinearForwardComputesAffineMap(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	linear := NewLinear(ctx, 2, 1)
	copy(linear.W.Value.Data, []float32{2, 3}) // y = 2*x0 + 3*x1 + b
	linear.B.Value.Data[0] = 1

	x := Leaf(tensor.New(1, 2))
	copy(x.Value.Data, []float32{5, 4})

	out, err := linear.Forward(x)
	require.NoError(t, err)
	runForward(t, backend, out)

	require.InDelta(t, 2*5+3*4+1, out.Value.Data[0], 1e-5)
}

func TestElementwiseMulForward(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	a := Leaf(tensor.New(1, 3))
	copy(a.Value.Data, []float32{1, 2, 3})
	b := Leaf(tensor.New(1, 3))
	copy(b.Value.Data, []float32{4, 5, 6})

	out, err := NewMul(ctx).Forward(a, b)
	require.NoError(t, err)
	runForward(t, backend, out)

	require.Equal(t, []float32{4, 10, 18}, out.Value.Data)
}

func TestSigmoidForwardMatchesClosedForm(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	x := Leaf(tensor.New(1, 2))
	copy(x.Value.Data, []float32{0, 2})

	out, err := NewSigmoid(ctx).Forward(x)
	require.NoError(t, err)
	runForward(t, backend, out)

	require.InDelta(t, 0.5, out.Value.Data[0], 1e-6)
	require.InDelta(t, 1/(1+math.Exp(-2)), out.Value.Data[1], 1e-6)
}

func TestResidualSumOfSquaresForwardSumsSquaredDiffs(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	predicted := Leaf(tensor.New(1, 2))
	copy(predicted.Value.Data, []float32{3, 5})
	expected := Leaf(tensor.New(1, 2))
	copy(expected.Value.Data, []float32{1, 2})

	out, err := NewResidualSumOfSquares(ctx).Forward(predicted, expected)
	require.NoError(t, err)
	runForward(t, backend, out)

	// (3-1)^2 + (5-2)^2 = 4 + 9 = 13
	require.InDelta(t, 13, out.Value.Data[0], 1e-4)
}

func TestSoftmaxCrossEntropyLossForwardMatchesNegLogLikelihood(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	logits := Leaf(tensor.New(1, 3))
	copy(logits.Value.Data, []float32{1, 2, 3})
	expected := Leaf(tensor.New(1, 3))
	expected.Value.Data[2] = 1

	out, err := NewSoftmaxCrossEntropyLoss(ctx).Forward(logits, expected)
	require.NoError(t, err)
	runForward(t, backend, out)

	probs := tensor.New(1, 3)
	require.NoError(t, backend.Softmax(logits.Value, probs))
	want := -math.Log(float64(probs.Data[2]))
	require.InDelta(t, want, out.Value.Data[0], 1e-4)
}
