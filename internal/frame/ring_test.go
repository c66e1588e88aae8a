package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushN(t *testing.T, pool *Pool, ring *Ring, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		h := pool.Acquire()
		require.NotNil(t, h, "pool exhausted at push %d", i)
		h.EnsureSize(2, 2)
		h.Data().FrameNumber = uint64(i)
		ring.Push(h)
	}
}

func TestRingOrderingAndOverflow(t *testing.T) {
	const capacity = 3
	pool := NewPool(capacity + 2)
	ring := NewRing(capacity)

	pushN(t, pool, ring, 5) // K=5 > C=3

	snap := ring.Snapshot()
	require.Len(t, snap, capacity)
	want := []uint64{3, 4, 5}
	for i, h := range snap {
		assert.Equal(t, want[i], h.Data().FrameNumber)
		h.Release()
	}

	latest := ring.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, uint64(5), latest.Data().FrameNumber)
	latest.Release()

	assert.Equal(t, pool.Capacity()-capacity, pool.Available(),
		"pool availability must recover to capacity-C once evicted frames are released")
}

func TestRingEmptyLatestIsNil(t *testing.T) {
	ring := NewRing(4)
	assert.Nil(t, ring.Latest())
	assert.Empty(t, ring.Snapshot())
}

func TestRingClearReleasesHandles(t *testing.T) {
	pool := NewPool(3)
	ring := NewRing(3)
	pushN(t, pool, ring, 3)
	assert.Equal(t, 0, pool.Available())

	ring.Clear()
	assert.Equal(t, 3, pool.Available())
	assert.Equal(t, 0, ring.Size())
}
