package heap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootSet_RegisterUnregister(t *testing.T) {
	var s RootSet
	a := s.Register(make([]uint64, 2))
	b := s.Register(make([]uint64, 3))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []*RootEntry{a, b}, s.Entries())

	require.True(t, s.Unregister(a))
	require.False(t, s.Unregister(a))
	assert.Equal(t, []*RootEntry{b}, s.Entries())
}

func TestHolds_RefCounting(t *testing.T) {
	var h Holds
	p1 := h.Hold(0x1000)
	p2 := h.Hold(0x1000)
	require.Same(t, p1, p2)
	assert.Equal(t, 1, h.Len())

	assert.False(t, h.Release(p1))
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Release(p1))
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Release(p1), "releasing a dead pin is a no-op")
}

func TestHolds_FreezeRewrite(t *testing.T) {
	var h Holds
	p := h.Hold(0x2000)

	pins := h.Freeze()
	require.Len(t, pins, 1)
	assert.Equal(t, Addr(0x2000), pins[0].LoadFrozen())
	pins[0].StoreFrozen(0x9000)
	h.Thaw()

	assert.Equal(t, Addr(0x9000), p.Addr())
}

func TestHolds_ConcurrentHolders(t *testing.T) {
	var h Holds
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := h.Hold(Addr(0x1000 * (i + 1)))
			_ = p.Addr()
			h.Release(p)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Len())
}
