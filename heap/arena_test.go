package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
)

// newTestArena maps a small arena and releases it when the test ends.
func newTestArena(t testing.TB, size int, memcheck bool) *Arena {
	t.Helper()
	a, err := NewArena(size, ArenaConfig{Memcheck: memcheck})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Release() })
	return a
}

// carve reserves and initializes an allocation of n data bytes.
func carve(t testing.TB, a *Arena, n uint32, d *TypeDescriptor) Header {
	t.Helper()
	allocLen := format.AllocLen(uint64(n), a.Memcheck())
	h, err := a.Reserve(int(allocLen))
	require.NoError(t, err)
	h.Init(HeaderInit{AllocLen: uint32(allocLen), RequestLen: n, Scan: d.Scan, TypeID: d.ID})
	if a.Memcheck() {
		h.WriteEndGuard()
	}
	return h
}

func TestNewArena_RoundsToPage(t *testing.T) {
	a := newTestArena(t, 5000, false)
	assert.Zero(t, a.Size()%4096)
	assert.GreaterOrEqual(t, a.Size(), 5000)
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, a.Size(), a.Free())
	assert.Equal(t, a.DataStart(), a.NextAlloc())
}

func TestNewArena_TooSmall(t *testing.T) {
	_, err := NewArena(8, ArenaConfig{})
	require.Error(t, err)
}

func TestArenas_DisjointAddressRanges(t *testing.T) {
	a := newTestArena(t, 4096, false)
	b := newTestArena(t, 4096, false)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Greater(t, uint64(b.DataStart()), uint64(a.HeapEnd()), "ranges must not touch")
	assert.False(t, b.InRange(uint64(a.DataStart())))
	assert.False(t, a.InRange(uint64(b.DataStart())))
	assert.False(t, a.InRange(uint64(Nil)))
}

func TestReserve_ExhaustsArena(t *testing.T) {
	a := newTestArena(t, 4096, false)
	n := 0
	// 48 + header = 112 bytes per allocation
	for {
		_, err := a.Reserve(48)
		if err != nil {
			require.ErrorIs(t, err, ErrNoSpace)
			break
		}
		n++
	}
	assert.Equal(t, a.Size()/(format.HeaderSize+48), n)
	assert.Equal(t, n, a.Count())
	assert.LessOrEqual(t, a.Used(), a.Size())
}

func TestLookup_InteriorPointers(t *testing.T) {
	a := newTestArena(t, 4096, false)
	h1 := carve(t, a, 24, Words)
	h2 := carve(t, a, 100, Bytes)

	tests := []struct {
		name string
		v    uint64
		want Header
		ok   bool
	}{
		{"data start", uint64(h1.DataAddr()), h1, true},
		{"header start", uint64(h1.Addr()), h1, true},
		{"interior", uint64(h2.DataAddr()) + 57, h2, true},
		{"last byte", uint64(h2.NextAddr()) - 1, h2, true},
		{"one past last", uint64(h2.NextAddr()), Header{}, false},
		{"before arena", uint64(a.DataStart()) - 1, Header{}, false},
		{"past heap end", uint64(a.HeapEnd()), Header{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.Lookup(tt.v)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want.Addr(), got.Addr())
			}
		})
	}
}

func TestHeaderAt(t *testing.T) {
	a := newTestArena(t, 4096, false)
	h := carve(t, a, 8, Words)

	got, err := a.HeaderAt(h.Addr())
	require.NoError(t, err)
	assert.Equal(t, h.Offset(), got.Offset())

	_, err = a.HeaderAt(h.DataAddr())
	require.ErrorIs(t, err, ErrBadAddr)
}

func TestHeaderInit_Fields(t *testing.T) {
	a := newTestArena(t, 4096, true)
	d := MustRegisterType("test.pair", ScanAll, nil)
	h := carve(t, a, 20, d)

	require.NoError(t, h.CheckGuard())
	require.NoError(t, h.CheckEndGuard())
	assert.Equal(t, a.ID(), h.ArenaID())
	assert.Equal(t, uint32(20), h.RequestLen())
	assert.Equal(t, uint32(32), h.AllocLen(), "20 + end guard rounded to 16")
	assert.Equal(t, h.DataAddr().Add(32), h.NextAddr())
	assert.Equal(t, Nil, h.Forward())
	assert.Equal(t, ScanAll, h.Scan())
	assert.Equal(t, d.ID, h.TypeID())
	assert.Len(t, h.Payload(), 20)
	assert.Equal(t, 4, h.Words())

	got, err := h.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, "test.pair", got.Name)
}

func TestHeader_GuardCorruption(t *testing.T) {
	a := newTestArena(t, 4096, true)
	h := carve(t, a, 16, Bytes)

	a.WriteWord(h.Offset()+format.GuardOffset, 0x1234)
	var ge *GuardError
	require.ErrorAs(t, h.CheckGuard(), &ge)
	assert.Equal(t, "guard", ge.Field)
	assert.Equal(t, uint64(0x1234), ge.Actual)

	copy(h.Data()[24:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.ErrorAs(t, h.CheckEndGuard(), &ge)
	assert.Equal(t, "end guard", ge.Field)
}

func TestHeader_ForwardAndHash(t *testing.T) {
	a := newTestArena(t, 4096, false)
	h := carve(t, a, 16, Bytes)

	h.SetForward(0xABCD0)
	h.SetHash([2]uint64{1, 2})
	assert.Equal(t, Addr(0xABCD0), h.Forward())
	assert.Equal(t, [2]uint64{1, 2}, h.Hash())
}

func TestArena_Release(t *testing.T) {
	a, err := NewArena(4096, ArenaConfig{})
	require.NoError(t, err)
	h := carve(t, a, 16, Bytes)
	v := uint64(h.DataAddr())

	require.NoError(t, a.Release())
	assert.True(t, a.Released())
	assert.False(t, a.InRange(v))
	_, err = a.Reserve(16)
	require.ErrorIs(t, err, ErrReleased)
	require.NoError(t, a.Release(), "double release is a no-op")
}

func TestArena_Sites(t *testing.T) {
	a := newTestArena(t, 4096, true)
	h := carve(t, a, 16, Bytes)
	a.RecordSite(h, Site{File: "vm.go", Line: 42})
	assert.Equal(t, "vm.go:42", a.SiteOf(h).String())

	plain := newTestArena(t, 4096, false)
	ph := carve(t, plain, 16, Bytes)
	plain.RecordSite(ph, Site{File: "x.go", Line: 1})
	assert.Equal(t, "unknown", plain.SiteOf(ph).String())
}

func TestGuard_NeverInAddressSpace(t *testing.T) {
	g := Guard()
	assert.NotZero(t, g&(1<<63))
	assert.Equal(t, g, Guard(), "guard is stable for the process")
}
