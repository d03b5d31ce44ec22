package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCircularOverwritesOldest(t *testing.T) {
	c := NewCircular[int](3)
	c.Push(1)
	c.Push(2)
	c.Push(3)
	require.True(t, c.Full())
	require.Equal(t, []int{1, 2, 3}, c.Snapshot())

	c.Push(4)
	require.Equal(t, []int{2, 3, 4}, c.Snapshot())
	require.Equal(t, 4, c.Back())
}

func TestCircularPartiallyFilled(t *testing.T) {
	c := NewCircular[int](5)
	c.Push(10)
	c.Push(20)
	require.Equal(t, 2, c.Size())
	require.False(t, c.Full())
	require.Equal(t, 10, c.At(0))
	require.Equal(t, 20, c.At(1))
}
