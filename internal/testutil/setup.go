// Package testutil holds test fixtures shared by the heap packages.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/heap"
)

// NewArena maps an arena of at least size bytes and releases it when the
// test ends.
//
// Example:
//
//	a := testutil.NewArena(t, 8192, true)
//	h, err := alloc.Carve(a, alloc.Request{Len: 16, Desc: heap.Words})
func NewArena(t testing.TB, size int, memcheck bool) *heap.Arena {
	t.Helper()
	a, err := heap.NewArena(size, heap.ArenaConfig{Memcheck: memcheck})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Release() })
	return a
}

// NewStack maps a machine stack and releases it when the test ends.
func NewStack(t testing.TB, size int) *heap.Stack {
	t.Helper()
	s, err := heap.NewStack(size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Release() })
	return s
}
