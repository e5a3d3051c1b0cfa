package gc

import (
	"errors"
	"time"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/dirty"
	"github.com/joshuapare/gckit/heap/verify"
)

// Collect copies every allocation reachable from the roots, the holds, the
// type table and the machine stack into a fresh arena, runs the finalizers
// of the unreachable ones, releases the old arena and runs the post-collect
// hooks. Hooks may allocate but must not collect. It either completes or
// panics with a *FatalError.
func (t *ThreadHeap) Collect() {
	if t.closed {
		return
	}
	if t.collecting {
		panic(fatal(KindReentrant, heap.Nil, errors.New("collection already in progress")))
	}
	if t.inHooks {
		panic(fatal(KindReentrant, heap.Nil, errors.New("collection started from a post-collect hook")))
	}
	t.collecting = true
	start := time.Now()

	from := t.cur
	size, err := nextArenaSize(from, t.opts.MaxArenaSize)
	if err != nil {
		panic(fatal(KindResourceExhausted, heap.Nil, err))
	}
	to, err := heap.NewArena(size, t.arenaConfig())
	if err != nil {
		panic(fatal(KindResourceExhausted, heap.Nil, err))
	}
	wl, err := newWorklist(t.opts.WorklistSize)
	if err != nil {
		panic(fatal(KindResourceExhausted, heap.Nil, err))
	}

	var writes *dirty.Tracker
	var dt alloc.DirtyTracker
	if t.opts.Memcheck {
		writes = dirty.NewTracker()
		dt = writes
	}
	tr := newTracer(from, alloc.NewBump(to, dt), wl)
	t.trace(tr)

	finalized := migrateFinalizers(from, to, t.finalizer)
	grow := overHighWater(to)
	to.SetGrowNext(grow)

	if t.opts.Memcheck {
		t.validate(from, writes)
	}
	if err := from.Release(); err != nil {
		t.log.Warn("gc: release from-space", "arena", from.ID(), "error", err)
	}
	if err := wl.close(); err != nil {
		t.log.Warn("gc: release worklist", "error", err)
	}
	t.cur = to
	t.collecting = false

	c := CollectionStats{
		FromSize:    from.Size(),
		ToSize:      to.Size(),
		Copied:      tr.copied,
		CopiedBytes: tr.copiedBytes,
		Finalized:   finalized,
		Occupancy:   float64(to.Used()) / float64(to.Size()),
		Grow:        grow,
		MaxWorklist: tr.maxDepth,
		Pause:       time.Since(start),
	}
	if writes != nil {
		c.PagesTouched = writes.Pages()
	}
	t.stats.Collections++
	if t.opts.Stats {
		t.stats.record(c)
	}
	t.log.Debug("gc: collected",
		"arena", to.ID(),
		"from_size", c.FromSize,
		"to_size", c.ToSize,
		"copied", c.Copied,
		"copied_bytes", c.CopiedBytes,
		"finalized", c.Finalized,
		"occupancy", c.Occupancy,
		"grow_next", c.Grow,
		"pages_touched", c.PagesTouched,
		"pause", c.Pause,
	)

	t.inHooks = true
	for _, fn := range t.hooks {
		fn()
	}
	t.inHooks = false
}

// trace seeds the worklist from every root kind and drains it. The hold set
// stays frozen for the whole trace.
func (t *ThreadHeap) trace(tr *tracer) {
	pins := t.holds.Freeze()
	defer t.holds.Thaw()

	tr.scanRoots(t.roots.Entries())
	tr.scanHolds(pins)
	if err := tr.scanStack(t.stack, t.opts.ParanoidStackScan); err != nil {
		panic(fatal(KindStackUnavailable, heap.Nil, err))
	}
	tr.drain()
}

// validate checks a traced from-space before it is released. Findings are
// fatal except possible missed allocations, which are logged unless
// StrictMemcheck is set.
func (t *ThreadHeap) validate(from *heap.Arena, writes *dirty.Tracker) {
	for _, err := range verify.Collection(from, writes) {
		var verr *verify.ValidationError
		if !errors.As(err, &verr) {
			panic(fatal(KindHeapCorruption, heap.Nil, err))
		}
		switch {
		case verr.Type == verify.TypeMissedAllocation && t.opts.StrictMemcheck:
			panic(fatal(KindMissedScan, verr.Addr, err))
		case verr.Fatal():
			panic(fatal(KindHeapCorruption, verr.Addr, err))
		}
		t.log.Warn("gc: validation", "type", verr.Type, "addr", verr.Addr, "error", verr.Message)
	}
}
