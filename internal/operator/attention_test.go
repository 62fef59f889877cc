package operator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tapegraph/neuralmachine/internal/device"
	"github.com/tapegraph/neuralmachine/internal/tensor"
)

// identity4 returns the 4x4 identity matrix as a Leaf tensor.
func identity4() *TensorWithGrad {
	t := tensor.New(4, 4)
	for i := 0; i < 4; i++ {
		t.Set(i, i, 1)
	}
	return Leaf(t)
}

func TestCausalAttentionOnIdentityRowsSumToOne(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	q, k, v := identity4(), identity4(), identity4()

	attn := NewScaledDotProductAttention(ctx, true)
	out, err := attn.Forward(q, k, v)
	require.NoError(t, err)
	runForward(t, backend, out)

	for r := 0; r < 4; r++ {
		var sum float32
		for c := 0; c < 4; c++ {
			sum += out.Value.At(r, c)
		}
		require.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestReshapeForwardPreservesElements(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	x := Leaf(tensor.New(2, 2))
	copy(x.Value.Data, []float32{1, 2, 3, 4})

	out, err := NewReshape(ctx, 1, 4).Forward(x)
	require.NoError(t, err)
	runForward(t, backend, out)

	require.Equal(t, []float32{1, 2, 3, 4}, out.Value.Data)
}

func TestEmbeddingForwardGathersRows(t *testing.T) {
	backend := device.NewCPU(1)
	ctx := NewContext(tensor.NewStore())
	emb := NewEmbedding(ctx, 4, 2)
	copy(emb.Table.Value.Data, []float32{
		0, 0,
		1, 1,
		2, 2,
		3, 3,
	})

	out, err := emb.Forward([]int{3, 0, 2})
	require.NoError(t, err)
	runForward(t, backend, out)

	require.Equal(t, []float32{3, 3, 0, 0, 2, 2}, out.Value.Data)
}

func TestEmbeddingForwardRejectsOutOfRangeID(t *testing.T) {
	ctx := NewContext(tensor.NewStore())
	emb := NewEmbedding(ctx, 4, 2)
	_, err := emb.Forward([]int{4})
	require.Error(t, err)
}

func TestDropoutKeepsShapeAndScales(t *testing.T) {
	backend := device.NewCPU(7)
	ctx := NewContext(tensor.NewStore())
	x := Leaf(tensor.New(1, 100))
	for i := range x.Value.Data {
		x.Value.Data[i] = 1
	}

	out, err := NewDropout(ctx, 0.5).Forward(x)
	require.NoError(t, err)
	runForward(t, backend, out)

	require.Equal(t, 100, out.Value.Len())
	for _, v := range out.Value.Data {
		require.True(t, v == 0 || v == 2)
	}
}
