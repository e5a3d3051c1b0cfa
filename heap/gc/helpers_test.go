package gc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/heap"
)

// nodeType is a two-word list cell: word 0 is the next pointer (precise),
// word 1 a plain value.
var nodeType = heap.MustRegisterType("gc.test.node", heap.ScanCallback, func(bm *heap.Bitmap, base []byte) {
	bm.Set(0)
})

// opaqueType never reports a pointer.
var opaqueType = heap.MustRegisterType("gc.test.opaque", heap.ScanCallback, func(bm *heap.Bitmap, base []byte) {})

func testOptions() Options {
	opts := DefaultOptions()
	opts.ArenaSize = 64 << 10
	opts.StackSize = 4 << 10
	opts.WorklistSize = 64
	opts.Memcheck = false
	opts.StrictMemcheck = false
	opts.Stats = true
	opts.ParanoidStackScan = false
	return opts
}

func newTestHeap(t *testing.T, mutate ...func(*Options)) *ThreadHeap {
	t.Helper()
	opts := testOptions()
	for _, m := range mutate {
		m(&opts)
	}
	th, err := NewThreadHeap(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = th.Close() })
	return th
}

func newNode(t *testing.T, th *ThreadHeap, next heap.Addr, val uint64) heap.Addr {
	t.Helper()
	p, err := th.Alloc(16, nodeType, 0)
	require.NoError(t, err)
	require.NoError(t, th.StoreAddr(p, next))
	require.NoError(t, th.Store(p+8, val))
	return p
}

// chainValues follows next pointers from p and returns the values seen.
func chainValues(t *testing.T, th *ThreadHeap, p heap.Addr) []uint64 {
	t.Helper()
	var vals []uint64
	for p != heap.Nil {
		v, err := th.Load(p + 8)
		require.NoError(t, err)
		vals = append(vals, v)
		p, err = th.LoadAddr(p)
		require.NoError(t, err)
	}
	return vals
}

// requireFatal runs fn and returns the *FatalError it panics with.
func requireFatal(t *testing.T, kind Kind, fn func()) *FatalError {
	t.Helper()
	var fe *FatalError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a fatal panic")
			var ok bool
			fe, ok = r.(*FatalError)
			require.Truef(t, ok, "panic value is %T: %v", r, r)
		}()
		fn()
	}()
	require.Equal(t, kind, fe.Kind, fe.Error())
	return fe
}
