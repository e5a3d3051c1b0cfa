package gc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/logger"
)

// ThreadHeap is the collected heap of one runtime thread: the current
// arena, the machine stack, registered roots, external holds and the hooks
// run after each collection.
//
// NOT thread-safe, except Hold, Release and the returned *heap.Pin values,
// which may be used from any goroutine.
type ThreadHeap struct {
	opts Options
	log  *slog.Logger

	cur   *heap.Arena
	stack *heap.Stack
	roots *heap.RootSet
	holds *heap.Holds
	types typeTable

	finalizer heap.Finalizer
	hooks     []func()

	collecting bool
	inHooks    bool
	closed     bool
	stats      Stats
}

// NewThreadHeap maps the first arena and the machine stack.
func NewThreadHeap(opts Options) (*ThreadHeap, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.L
	}

	stack, err := heap.NewStack(opts.StackSize)
	if err != nil {
		return nil, fmt.Errorf("gc: machine stack: %w", err)
	}
	t := &ThreadHeap{
		opts:  opts,
		log:   log,
		stack: stack,
		roots: &heap.RootSet{},
		holds: &heap.Holds{},
	}
	t.cur, err = heap.NewArena(opts.ArenaSize, t.arenaConfig())
	if err != nil {
		_ = stack.Release()
		return nil, fmt.Errorf("gc: first arena: %w", err)
	}
	t.types.init(t.roots)
	return t, nil
}

func (t *ThreadHeap) arenaConfig() heap.ArenaConfig {
	return heap.ArenaConfig{Roots: t.roots, Holds: t.holds, Memcheck: t.opts.Memcheck}
}

// Close releases the arena and the machine stack. Finalizers are not run.
func (t *ThreadHeap) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return errors.Join(t.cur.Release(), t.stack.Release())
}

// Options returns the options the heap was created with.
func (t *ThreadHeap) Options() Options { return t.opts }

// Current returns the current arena. It changes on every collection.
func (t *ThreadHeap) Current() *heap.Arena { return t.cur }

// Stack returns the machine stack.
func (t *ThreadHeap) Stack() *heap.Stack { return t.stack }

// Stats returns the collection statistics.
func (t *ThreadHeap) Stats() Stats {
	s := t.stats
	if !t.closed {
		s.ArenaSize = t.cur.Size()
		s.Used = t.cur.Used()
	}
	return s
}

// RegisterRoot registers words as a root range. Every collection rewrites
// the words that point into the heap.
func (t *ThreadHeap) RegisterRoot(words []uint64) *heap.RootEntry {
	return t.roots.Register(words)
}

// UnregisterRoot removes a root registered with RegisterRoot.
func (t *ThreadHeap) UnregisterRoot(e *heap.RootEntry) bool {
	return t.roots.Unregister(e)
}

// Hold pins the allocation at p until the returned pin is released. It may
// be called from any goroutine.
func (t *ThreadHeap) Hold(p heap.Addr) *heap.Pin {
	return t.holds.Hold(p)
}

// Release drops one reference to pin and reports whether the hold is gone.
func (t *ThreadHeap) Release(pin *heap.Pin) bool {
	return t.holds.Release(pin)
}

// SetSystemFinalizer sets the function invoked for every unreachable
// allocation made with the Finalize flag. fn must not allocate.
func (t *ThreadHeap) SetSystemFinalizer(fn heap.Finalizer) {
	t.finalizer = fn
}

// RegisterPostCollectHook adds fn to the hooks run, in registration order,
// after every successful collection.
func (t *ThreadHeap) RegisterPostCollectHook(fn func()) {
	t.hooks = append(t.hooks, fn)
}

// Alloc allocates n bytes described by desc and returns the data address.
// When the arena is full it collects, then grows the arena until the
// request fits or MaxArenaSize is reached. Addresses held outside roots,
// the stack and pins are stale after Alloc returns.
func (t *ThreadHeap) Alloc(n uint32, desc *heap.TypeDescriptor, flags uint8) (heap.Addr, error) {
	req := alloc.Request{Len: n, Desc: desc, Flags: flags}
	if t.opts.Memcheck {
		req.Site = alloc.CallerSite(1)
	}
	h, err := t.alloc(req)
	if err != nil {
		return heap.Nil, err
	}
	return h.DataAddr(), nil
}

func (t *ThreadHeap) alloc(req alloc.Request) (heap.Header, error) {
	if t.closed {
		return heap.Header{}, ErrClosed
	}
	if t.collecting {
		panic(fatal(KindReentrant, heap.Nil, errors.New("allocation during collection")))
	}
	h, err := alloc.FromArenaRequest(t.cur, req)
	if !errors.Is(err, heap.ErrNoSpace) {
		return h, err
	}
	t.Collect()
	for {
		h, err = alloc.FromArenaRequest(t.cur, req)
		if !errors.Is(err, heap.ErrNoSpace) {
			return h, err
		}
		prev := t.cur.GrowNext()
		t.cur.SetGrowNext(true)
		if _, err := nextArenaSize(t.cur, t.opts.MaxArenaSize); err != nil {
			t.cur.SetGrowNext(prev)
			return heap.Header{}, fmt.Errorf("%w: %d bytes: %v", heap.ErrNoSpace, req.Len, err)
		}
		t.Collect()
	}
}

// Header returns the header of the allocation containing p.
func (t *ThreadHeap) Header(p heap.Addr) (heap.Header, error) {
	if t.closed {
		return heap.Header{}, ErrClosed
	}
	h, ok := t.cur.Lookup(uint64(p))
	if !ok {
		return heap.Header{}, fmt.Errorf("%w: %v", heap.ErrBadAddr, p)
	}
	if err := h.CheckGuard(); err != nil {
		return heap.Header{}, err
	}
	return h, nil
}

// Payload returns the requested bytes of the allocation whose data starts
// at p. The slice is invalidated by the next collection.
func (t *ThreadHeap) Payload(p heap.Addr) ([]byte, error) {
	h, err := t.Header(p)
	if err != nil {
		return nil, err
	}
	if h.DataAddr() != p {
		return nil, fmt.Errorf("%w: %v is not a data address", heap.ErrBadAddr, p)
	}
	return h.Payload(), nil
}

// wordAt returns the arena offset of the word at p, which must lie inside
// the requested bytes of an allocation, rounded up to a whole word.
func (t *ThreadHeap) wordAt(p heap.Addr) (int, error) {
	h, err := t.Header(p)
	if err != nil {
		return 0, err
	}
	words := (uint64(h.RequestLen()) + format.WordMask) &^ format.WordMask
	limit := h.DataAddr().Add(words)
	if p < h.DataAddr() || p+format.WordSize > limit {
		return 0, fmt.Errorf("%w: word at %v outside data of %v", heap.ErrBadAddr, p, h.Addr())
	}
	off, _ := t.cur.Offset(p)
	return off, nil
}

// Load reads the word at p.
func (t *ThreadHeap) Load(p heap.Addr) (uint64, error) {
	off, err := t.wordAt(p)
	if err != nil {
		return 0, err
	}
	return t.cur.ReadWord(off), nil
}

// Store writes v to the word at p.
func (t *ThreadHeap) Store(p heap.Addr, v uint64) error {
	off, err := t.wordAt(p)
	if err != nil {
		return err
	}
	t.cur.WriteWord(off, v)
	return nil
}

// LoadAddr reads the word at p as an address.
func (t *ThreadHeap) LoadAddr(p heap.Addr) (heap.Addr, error) {
	v, err := t.Load(p)
	return heap.Addr(v), err
}

// StoreAddr writes the address v to the word at p.
func (t *ThreadHeap) StoreAddr(p, v heap.Addr) error {
	return t.Store(p, uint64(v))
}
