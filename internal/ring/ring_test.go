package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	require.Panics(t, func() { New[int](3) })
	require.Panics(t, func() { New[int](0) })
	require.NotPanics(t, func() { New[int](4) })
}

func TestPushPopOrder(t *testing.T) {
	r := New[int](8)
	for i := 0; i < 7; i++ {
		require.True(t, r.TryPush(i))
	}
	require.True(t, r.Full())
	require.False(t, r.TryPush(99))

	for i := 0; i < 7; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.True(t, r.Empty())
	_, ok := r.TryPop()
	require.False(t, ok)
}

func TestCapacityIsOneLessThanBacking(t *testing.T) {
	r := New[int](16)
	require.Equal(t, 15, r.Capacity())
}

func TestConcurrentSPSCNoLossNoDuplication(t *testing.T) {
	const n = 200000
	r := New[int](1024)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.TryPush(i) {
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if v, ok := r.TryPop(); ok {
				received = append(received, v)
			}
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		require.Equal(t, i, v)
	}
}
