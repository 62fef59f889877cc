package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAssignsStableDistinctNames(t *testing.T) {
	a := New(2, 3)
	b := New(3, 2)

	require.NotEqual(t, a.Name(), b.Name())
	require.Equal(t, a.Name(), a.Name(), "name must be stable across reads")
}

func TestNewFilled(t *testing.T) {
	x := NewFilled(2, 2, 0.7)
	for _, v := range x.Data {
		require.Equal(t, float32(0.7), v)
	}
}

func TestResizePreservesElementCount(t *testing.T) {
	x := New(2, 3)
	name := x.Name()
	x.Resize(3, 2)
	require.Equal(t, 3, x.Rows)
	require.Equal(t, 2, x.Cols)
	require.Equal(t, name, x.Name(), "resize must not change identity")
}

func TestResizePanicsOnElementCountChange(t *testing.T) {
	x := New(2, 3)
	require.Panics(t, func() { x.Resize(2, 2) })
}

func TestStoreRegistersParameters(t *testing.T) {
	s := NewStore()
	w := s.NewParameter(4, 4)
	require.True(t, w.IsParameter)
	require.True(t, w.RequiresGrad)

	s.NewParameter(1, 4)
	require.Len(t, s.Parameters(), 2)
}
