package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/dirty"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/testutil"
)

func newArena(t *testing.T) *heap.Arena {
	t.Helper()
	return testutil.NewArena(t, 8192, true)
}

func mustCarve(t *testing.T, a *heap.Arena, n uint32, d *heap.TypeDescriptor) heap.Header {
	t.Helper()
	h, err := alloc.Carve(a, alloc.Request{Len: n, Desc: d, Site: heap.Site{File: "unify.go", Line: 88}})
	require.NoError(t, err)
	return h
}

func TestGuards_Clean(t *testing.T) {
	a := newArena(t)
	mustCarve(t, a, 16, heap.Words)
	mustCarve(t, a, 40, heap.Bytes)
	assert.Empty(t, Guards(a))
}

func TestGuards_FrontGuardCorruption(t *testing.T) {
	a := newArena(t)
	h := mustCarve(t, a, 16, heap.Words)
	a.WriteWord(h.Offset()+format.GuardOffset, 0xBAD)

	errs := Guards(a)
	require.Len(t, errs, 1)
	var verr *ValidationError
	require.True(t, errors.As(errs[0], &verr))
	assert.Equal(t, TypeHeapCorruption, verr.Type)
	assert.Equal(t, h.Addr(), verr.Addr)
	assert.Equal(t, "words", verr.Details["type"])
	assert.Equal(t, "unify.go:88", verr.Details["site"])
	assert.Equal(t, uint64(0xBAD), verr.Details["actual"])
	assert.True(t, verr.Fatal())
	assert.Contains(t, verr.Error(), "allocated at unify.go:88")
}

func TestGuards_EndGuardOverrun(t *testing.T) {
	a := newArena(t)
	h := mustCarve(t, a, 8, heap.Bytes)
	// write past the requested length into the end guard
	for i := range h.Data() {
		h.Data()[i] = 0x41
	}

	errs := Guards(a)
	require.Len(t, errs, 1)
	var verr *ValidationError
	require.True(t, errors.As(errs[0], &verr))
	assert.Equal(t, "end guard", verr.Details["field"])
}

func TestMissedPointers(t *testing.T) {
	a := newArena(t)
	src := mustCarve(t, a, 16, heap.Bytes) // ScanNone, but holds a pointer
	live := mustCarve(t, a, 16, heap.Words)
	dead := mustCarve(t, a, 16, heap.Words)

	base := src.Offset() + format.HeaderSize
	a.WriteWord(base, uint64(dead.DataAddr()))
	a.WriteWord(base+8, uint64(live.DataAddr()))

	// only src and live were reached
	src.SetForward(0x1000)
	live.SetForward(0x2000)

	errs := MissedPointers(a)
	require.Len(t, errs, 1)
	var verr *ValidationError
	require.True(t, errors.As(errs[0], &verr))
	assert.Equal(t, TypeMissedAllocation, verr.Type)
	assert.Equal(t, src.Addr(), verr.Addr)
	assert.Equal(t, 0, verr.Details["word"])
	assert.Equal(t, dead.Addr(), verr.Details["target"])
	assert.False(t, verr.Fatal(), "missed allocations are lenient by default")
	assert.Contains(t, verr.Error(), "possible missed allocation")
}

func TestMissedPointers_IgnoresUnforwardedSources(t *testing.T) {
	a := newArena(t)
	src := mustCarve(t, a, 16, heap.Words)
	dead := mustCarve(t, a, 16, heap.Words)
	a.WriteWord(src.Offset()+format.HeaderSize, uint64(dead.DataAddr()))

	// garbage pointing at garbage is not a finding
	assert.Empty(t, MissedPointers(a))
}

func TestWriteOnce(t *testing.T) {
	tracker := dirty.NewTracker()
	tracker.Add(0, 64)
	tracker.Add(64, 32)
	require.NoError(t, WriteOnce(tracker))

	tracker.Add(80, 16)
	err := WriteOnce(tracker)
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, TypeWriteOnce, verr.Type)
	assert.Equal(t, heap.Nil, verr.Addr)
	assert.NotContains(t, verr.Error(), " at 0x", "no address for write-once findings")
}

func TestCollection_Aggregates(t *testing.T) {
	a := newArena(t)
	h := mustCarve(t, a, 16, heap.Words)
	a.WriteWord(h.Offset()+format.GuardOffset, 1)

	tracker := dirty.NewTracker()
	tracker.Add(0, 64)
	tracker.Add(32, 64)

	errs := Collection(a, tracker)
	require.Len(t, errs, 2)
	assert.Len(t, Collection(a, nil), 1)
}
