package heap

import (
	"slices"
	"sync"
)

// RootEntry is a caller-owned range of words, each possibly holding a pointer
// into the current arena. The collector rewrites words in place when the
// allocations they point to move.
type RootEntry struct {
	Words []uint64
}

// RootSet is the list of registered roots of one thread heap.
type RootSet struct {
	entries []*RootEntry
}

// Register adds a root range and returns its entry. The words slice must
// stay valid until the entry is unregistered.
func (s *RootSet) Register(words []uint64) *RootEntry {
	e := &RootEntry{Words: words}
	s.entries = append(s.entries, e)
	return e
}

// Unregister removes e. It reports whether e was registered.
func (s *RootSet) Unregister(e *RootEntry) bool {
	i := slices.Index(s.entries, e)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// Entries returns the registered entries in registration order.
func (s *RootSet) Entries() []*RootEntry { return s.entries }

// Len returns the number of registered entries.
func (s *RootSet) Len() int { return len(s.entries) }

// Pin is an external hold on an allocation, taken by a thread that does not
// own the arena. While held, the allocation survives collections and Addr
// follows it to its new location.
type Pin struct {
	holds *Holds
	addr  Addr
	refs  int
}

// Addr returns the pinned address as of the last collection.
func (p *Pin) Addr() Addr {
	p.holds.mu.Lock()
	defer p.holds.mu.Unlock()
	return p.addr
}

// Holds is the set of external holds on one thread heap's allocations. It is
// the only heap structure shared across goroutines.
type Holds struct {
	mu   sync.Mutex
	pins []*Pin
}

// Hold pins addr. Holding an already pinned address bumps its reference
// count and returns the same Pin.
func (h *Holds) Hold(addr Addr) *Pin {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.pins {
		if p.addr == addr {
			p.refs++
			return p
		}
	}
	p := &Pin{holds: h, addr: addr, refs: 1}
	h.pins = append(h.pins, p)
	return p
}

// Release drops one reference to p. The hold is removed once the last
// reference is released; it reports whether that happened.
func (h *Holds) Release(p *Pin) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p.refs == 0 {
		return false
	}
	p.refs--
	if p.refs > 0 {
		return false
	}
	if i := slices.Index(h.pins, p); i >= 0 {
		h.pins = slices.Delete(h.pins, i, i+1)
	}
	return true
}

// Len returns the number of live holds.
func (h *Holds) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pins)
}

// Freeze locks the set for the duration of a collection and returns the
// live pins. Hold, Release and Pin.Addr block until Thaw.
func (h *Holds) Freeze() []*Pin {
	h.mu.Lock()
	return slices.Clone(h.pins)
}

// Thaw unlocks a set locked by Freeze.
func (h *Holds) Thaw() {
	h.mu.Unlock()
}

// LoadFrozen returns p's address. The set must be frozen.
func (p *Pin) LoadFrozen() Addr { return p.addr }

// StoreFrozen rewrites p's address. The set must be frozen.
func (p *Pin) StoreFrozen(a Addr) { p.addr = a }
