package gc

import (
	"fmt"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/internal/buf"
	"github.com/joshuapare/gckit/internal/format"
)

// tracer copies everything reachable from its seeds out of from into to.
// A tracer serves a single collection.
type tracer struct {
	from  *heap.Arena
	to    *alloc.Bump
	wl    *worklist
	roots []*heap.RootEntry
	stack *heap.Stack
	pins  []*heap.Pin
	// free bitmaps; a full worklist can nest scans
	bitmaps []*heap.Bitmap

	copied      int
	copiedBytes int
	maxDepth    int
}

func newTracer(from *heap.Arena, to *alloc.Bump, wl *worklist) *tracer {
	return &tracer{from: from, to: to, wl: wl}
}

// load reads the word at loc.
func (t *tracer) load(it item) uint64 {
	switch it.kind {
	case locArena:
		return t.from.ReadWord(int(it.off))
	case locRoot:
		return t.roots[it.region].Words[it.off]
	case locStack:
		w, ok := buf.WordAt(t.stack.Bytes(), int(it.off))
		if !ok {
			panic(fatal(KindHeapCorruption, heap.Nil, fmt.Errorf("stack slot %d out of range", it.off)))
		}
		return w
	case locHold:
		return uint64(t.pins[it.region].LoadFrozen())
	}
	panic(fatal(KindHeapCorruption, heap.Nil, fmt.Errorf("worklist item with location kind %d", it.kind)))
}

// store rewrites the word at loc.
func (t *tracer) store(it item, v uint64) {
	switch it.kind {
	case locArena:
		t.from.WriteWord(int(it.off), v)
	case locRoot:
		t.roots[it.region].Words[it.off] = v
	case locStack:
		if !buf.PutWordAt(t.stack.Bytes(), int(it.off), v) {
			panic(fatal(KindHeapCorruption, heap.Nil, fmt.Errorf("stack slot %d out of range", it.off)))
		}
	case locHold:
		t.pins[it.region].StoreFrozen(heap.Addr(v))
	}
}

// push queues it. A full worklist is drained oldest-first until it fits;
// work is never dropped.
func (t *tracer) push(it item) {
	for !t.wl.push(it) {
		old, _ := t.wl.pop()
		t.step(old)
	}
	if n := t.wl.len(); n > t.maxDepth {
		t.maxDepth = n
	}
}

// seed queues a Forward for it when its current value points into from-space.
func (t *tracer) seed(it item) {
	if t.from.InRange(t.load(it)) {
		it.op = opForward
		t.push(it)
	}
}

func (t *tracer) drain() {
	for {
		it, ok := t.wl.pop()
		if !ok {
			return
		}
		t.step(it)
	}
}

func (t *tracer) step(it item) {
	switch it.op {
	case opForward:
		t.forward(it)
	case opCopy:
		t.copy(int(it.off))
	default:
		panic(fatal(KindHeapCorruption, heap.Nil, fmt.Errorf("worklist item with op %d", it.op)))
	}
}

// forward resolves the candidate pointer stored at it. The location is
// rewritten before anything else is queued.
func (t *tracer) forward(it item) {
	v := t.load(it)
	if !t.from.InRange(v) {
		return
	}
	h, ok := t.from.Lookup(v)
	if !ok {
		return
	}
	if err := h.CheckGuard(); err != nil {
		panic(fatal(KindHeapCorruption, h.Addr(), err))
	}
	if fwd := h.Forward(); fwd != heap.Nil {
		t.store(it, rebase(v, h.DataAddr(), fwd))
		return
	}

	nh := t.prep(h)
	h.SetForward(nh.DataAddr())
	t.store(it, rebase(v, h.DataAddr(), nh.DataAddr()))
	t.scanInterior(h, nh)
	t.push(item{op: opCopy, off: uint64(h.Offset())})
}

// rebase moves v, which points into the allocation whose data starts at
// oldData, to the same offset from newData. v may point into the header.
func rebase(v uint64, oldData, newData heap.Addr) uint64 {
	return v - uint64(oldData) + uint64(newData)
}

// prep carves the to-space block for h with the same request length,
// descriptor, flags, hash and allocation site.
func (t *tracer) prep(h heap.Header) heap.Header {
	desc, err := h.Descriptor()
	if err != nil {
		panic(fatal(KindHeapCorruption, h.Addr(), err))
	}
	nh, err := t.to.Alloc(alloc.Request{
		Len:   h.RequestLen(),
		Desc:  desc,
		Flags: h.Flags(),
		Hash:  h.Hash(),
		Site:  t.from.SiteOf(h),
	})
	if err != nil {
		panic(fatal(KindResourceExhausted, h.Addr(), fmt.Errorf("to-space: %w", err)))
	}
	return nh
}

// scanInterior examines the pointer words of h, a freshly forwarded
// allocation whose copy is nh.
func (t *tracer) scanInterior(h, nh heap.Header) {
	objectHeader := h.Has(format.FlagObjectHeader)
	switch h.Scan() {
	case heap.ScanAll:
		for i := range h.Words() {
			t.scanWord(h, nh, i)
		}
	case heap.ScanCallback:
		desc, err := h.Descriptor()
		if err != nil {
			panic(fatal(KindHeapCorruption, h.Addr(), err))
		}
		bm := t.bitmap(h.Words())
		desc.Callback(bm, h.Payload())
		if objectHeader {
			bm.Set(0)
		}
		for i := bm.Next(0); i >= 0; i = bm.Next(i + 1) {
			t.scanWord(h, nh, i)
		}
		t.bitmaps = append(t.bitmaps, bm)
	default:
		if objectHeader && h.Words() > 0 {
			t.scanWord(h, nh, 0)
		}
	}
}

// bitmap returns a cleared bitmap of n bits. Return it to t.bitmaps when done.
func (t *tracer) bitmap(n int) *heap.Bitmap {
	var bm *heap.Bitmap
	if k := len(t.bitmaps); k > 0 {
		bm = t.bitmaps[k-1]
		t.bitmaps = t.bitmaps[:k-1]
	} else {
		bm = new(heap.Bitmap)
	}
	bm.Reset(n)
	return bm
}

// scanWord handles word i of h. Self references are rewritten in place;
// anything else in from-space gets a Forward on the word's location.
func (t *tracer) scanWord(h, nh heap.Header, i int) {
	off := h.Offset() + format.HeaderSize + i*format.WordSize
	v := t.from.ReadWord(off)
	if !t.from.InRange(v) {
		return
	}
	if h.Contains(v) {
		t.from.WriteWord(off, rebase(v, h.DataAddr(), nh.DataAddr()))
		return
	}
	t.push(item{op: opForward, kind: locArena, off: uint64(off)})
}

// copy moves the data of the from-space allocation at off to its forwarded
// block. Every pointer word in it has been resolved by now.
func (t *tracer) copy(off int) {
	h := t.from.HeaderAtOffset(off)
	to := t.to.Arena()
	nh, err := to.HeaderAt(h.Forward() - format.HeaderSize)
	if err != nil {
		panic(fatal(KindHeapCorruption, h.Addr(), fmt.Errorf("forward target: %w", err)))
	}
	if err := t.to.Fill(nh, h.Data()); err != nil {
		panic(fatal(KindHeapCorruption, h.Addr(), err))
	}
	t.copied++
	t.copiedBytes += format.HeaderSize + len(nh.Data())
}
