package heap

import (
	"fmt"
	"iter"
	"sort"
	"sync/atomic"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/mmap"
)

var arenaIDs atomic.Uint64

// Site is the source location an allocation was requested from. It is only
// recorded in memcheck arenas.
type Site struct {
	File string
	Line int
}

func (s Site) String() string {
	if s.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// ArenaConfig configures a new arena.
type ArenaConfig struct {
	// Roots is shared between the from-space and to-space of a collection;
	// a nil value creates an empty set.
	Roots *RootSet
	// Holds is shared the same way as Roots.
	Holds *Holds
	// Memcheck reserves end guards and records allocation sites.
	Memcheck bool
}

// Arena is a contiguous, bump-allocated region owned by one thread heap.
//
// NOT thread-safe.
type Arena struct {
	id      uint64
	base    Addr
	mem     []byte
	release func() error

	dataStart int
	heapEnd   int
	nextAlloc int

	// index holds header offsets in allocation (and therefore address) order.
	index []int

	roots      *RootSet
	holds      *Holds
	finalizers FinalizerList
	growNext   bool

	memcheck bool
	shadow   map[int]Site
}

// NewArena maps a new arena of at least size bytes, rounded up to the page size.
func NewArena(size int, cfg ArenaConfig) (*Arena, error) {
	if size < format.HeaderSize+format.ArenaAlignment {
		return nil, fmt.Errorf("heap: arena size %d too small", size)
	}
	size = int(format.AlignPage(uint64(size), uint64(mmap.PageSize())))
	mem, release, err := mmap.Anon(size)
	if err != nil {
		return nil, fmt.Errorf("heap: new arena: %w", err)
	}
	a := &Arena{
		id:        arenaIDs.Add(1),
		base:      reserveRange(uint64(size)),
		mem:       mem,
		release:   release,
		dataStart: 0,
		heapEnd:   size,
		nextAlloc: 0,
		index:     make([]int, 0, 64),
		roots:     cfg.Roots,
		holds:     cfg.Holds,
		memcheck:  cfg.Memcheck,
	}
	if a.roots == nil {
		a.roots = &RootSet{}
	}
	if a.holds == nil {
		a.holds = &Holds{}
	}
	a.finalizers.arena = a
	if a.memcheck {
		a.shadow = make(map[int]Site)
	}
	return a, nil
}

// ID returns the arena's process-unique id.
func (a *Arena) ID() uint64 { return a.id }

// Base returns the address of the arena's first byte.
func (a *Arena) Base() Addr { return a.base }

// DataStart returns the address of the first allocatable byte.
func (a *Arena) DataStart() Addr { return a.base.Add(uint64(a.dataStart)) }

// HeapEnd returns the address one past the last allocatable byte.
func (a *Arena) HeapEnd() Addr { return a.base.Add(uint64(a.heapEnd)) }

// NextAlloc returns the bump pointer.
func (a *Arena) NextAlloc() Addr { return a.base.Add(uint64(a.nextAlloc)) }

// Size returns the allocatable size in bytes.
func (a *Arena) Size() int { return a.heapEnd - a.dataStart }

// Used returns the number of bytes handed out so far.
func (a *Arena) Used() int { return a.nextAlloc - a.dataStart }

// Free returns the number of bytes still available.
func (a *Arena) Free() int { return a.heapEnd - a.nextAlloc }

// Count returns the number of allocations carved from the arena.
func (a *Arena) Count() int { return len(a.index) }

// Memcheck reports whether the arena reserves end guards and records sites.
func (a *Arena) Memcheck() bool { return a.memcheck }

// GrowNext reports whether the next collection should double the arena size.
func (a *Arena) GrowNext() bool { return a.growNext }

// SetGrowNext sets the growth flag consulted by the next collection.
func (a *Arena) SetGrowNext(v bool) { a.growNext = v }

// Roots returns the root set shared with the arena's successor.
func (a *Arena) Roots() *RootSet { return a.roots }

// Holds returns the external hold set shared with the arena's successor.
func (a *Arena) Holds() *Holds { return a.holds }

// Finalizers returns the arena's finalizer list.
func (a *Arena) Finalizers() *FinalizerList { return &a.finalizers }

// Released reports whether the arena's memory has been unmapped.
func (a *Arena) Released() bool { return a.mem == nil }

// Release unmaps the arena. Headers and data slices become invalid.
func (a *Arena) Release() error {
	if a.mem == nil {
		return nil
	}
	a.mem = nil
	a.index = nil
	a.shadow = nil
	return a.release()
}

// InRange reports whether v lies in [data_start, heap_end).
func (a *Arena) InRange(v uint64) bool {
	return a.mem != nil && v >= uint64(a.DataStart()) && v < uint64(a.HeapEnd())
}

// Reserve bumps the allocation pointer by a header plus allocLen bytes and
// records the new header in the index. The header is not initialized.
func (a *Arena) Reserve(allocLen int) (Header, error) {
	if a.mem == nil {
		return Header{}, ErrReleased
	}
	need := format.HeaderSize + allocLen
	if allocLen < 0 || need > a.heapEnd-a.nextAlloc {
		return Header{}, ErrNoSpace
	}
	off := a.nextAlloc
	a.nextAlloc += need
	a.index = append(a.index, off)
	return Header{a: a, off: off}, nil
}

// HeaderAt returns the header starting at addr. addr must be the exact
// address of a header returned by Reserve.
func (a *Arena) HeaderAt(addr Addr) (Header, error) {
	off, ok := a.offset(uint64(addr))
	if !ok {
		return Header{}, fmt.Errorf("%w: %v", ErrBadAddr, addr)
	}
	if err := format.CheckHeader(a.mem, off); err != nil {
		return Header{}, fmt.Errorf("%w: %v: %v", ErrBadAddr, addr, err)
	}
	i := sort.SearchInts(a.index, off)
	if i == len(a.index) || a.index[i] != off {
		return Header{}, fmt.Errorf("%w: %v is not a header", ErrBadAddr, addr)
	}
	return Header{a: a, off: off}, nil
}

// HeaderAtOffset is HeaderAt for an arena offset taken from the index.
func (a *Arena) HeaderAtOffset(off int) Header {
	return Header{a: a, off: off}
}

// Lookup finds the allocation containing v, which may point anywhere inside
// it, header included. ok is false when v is not inside any allocation.
func (a *Arena) Lookup(v uint64) (Header, bool) {
	off, ok := a.offset(v)
	if !ok || off >= a.nextAlloc {
		return Header{}, false
	}
	// last header starting at or before off
	i := sort.Search(len(a.index), func(i int) bool { return a.index[i] > off }) - 1
	if i < 0 {
		return Header{}, false
	}
	h := Header{a: a, off: a.index[i]}
	if !h.Contains(v) {
		return Header{}, false
	}
	return h, true
}

// Headers iterates over every allocation in address order.
func (a *Arena) Headers() iter.Seq[Header] {
	return func(yield func(Header) bool) {
		for _, off := range a.index {
			if !yield(Header{a: a, off: off}) {
				return
			}
		}
	}
}

// ReadWord reads the word at arena offset off.
func (a *Arena) ReadWord(off int) uint64 { return format.ReadU64(a.mem, off) }

// WriteWord stores v at arena offset off.
func (a *Arena) WriteWord(off int, v uint64) { format.PutU64(a.mem, off, v) }

// Offset converts an address into an arena offset.
func (a *Arena) Offset(v Addr) (int, bool) { return a.offset(uint64(v)) }

func (a *Arena) offset(v uint64) (int, bool) {
	if !a.InRange(v) {
		return 0, false
	}
	return int(v - uint64(a.base)), true
}

// RecordSite stores the allocation site of h (memcheck only).
func (a *Arena) RecordSite(h Header, s Site) {
	if a.shadow != nil {
		a.shadow[h.off] = s
	}
}

// SiteOf returns the recorded allocation site of h.
func (a *Arena) SiteOf(h Header) Site {
	return a.shadow[h.off]
}
