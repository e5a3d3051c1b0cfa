package heap

import (
	"fmt"
	"math/bits"
	"sync"
)

// ScanKind tells the collector how to find pointers inside an allocation.
type ScanKind uint8

const (
	// ScanNone marks allocations that never contain heap pointers.
	ScanNone ScanKind = iota
	// ScanAll treats every word as a candidate pointer (conservative).
	ScanAll
	// ScanCallback asks the type's callback for a precise pointer bitmap.
	ScanCallback
)

func (k ScanKind) String() string {
	switch k {
	case ScanNone:
		return "none"
	case ScanAll:
		return "all"
	case ScanCallback:
		return "callback"
	default:
		return fmt.Sprintf("ScanKind(%d)", uint8(k))
	}
}

// ScanFunc marks in bm every word of base that holds a live heap pointer.
// bm has one bit per word of the allocation's physical data. Omitting a live
// pointer is a bug; marking a non-pointer only costs a range check.
type ScanFunc func(bm *Bitmap, base []byte)

// TypeDescriptor is the per-type scan descriptor. The id is stored in every
// header so the same descriptor is used on every collection of an allocation.
type TypeDescriptor struct {
	ID       uint32
	Name     string
	Scan     ScanKind
	Callback ScanFunc
}

var registry struct {
	mu    sync.RWMutex
	descs []*TypeDescriptor
}

// Builtin descriptors.
var (
	// Bytes is an opaque byte buffer.
	Bytes = MustRegisterType("bytes", ScanNone, nil)
	// Words is a buffer of words scanned conservatively.
	Words = MustRegisterType("words", ScanAll, nil)
)

// RegisterType registers a scan descriptor and returns it with its id set.
func RegisterType(name string, kind ScanKind, cb ScanFunc) (*TypeDescriptor, error) {
	if kind > ScanCallback {
		return nil, fmt.Errorf("%w: %q has scan kind %d", ErrBadDescriptor, name, kind)
	}
	if (kind == ScanCallback) != (cb != nil) {
		return nil, fmt.Errorf("%w: %q: callback must be set exactly for ScanCallback", ErrBadDescriptor, name)
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	d := &TypeDescriptor{
		ID:       uint32(len(registry.descs)),
		Name:     name,
		Scan:     kind,
		Callback: cb,
	}
	registry.descs = append(registry.descs, d)
	return d, nil
}

// MustRegisterType is like RegisterType but panics on error. Intended for
// package-level descriptor variables.
func MustRegisterType(name string, kind ScanKind, cb ScanFunc) *TypeDescriptor {
	d, err := RegisterType(name, kind, cb)
	if err != nil {
		panic(err)
	}
	return d
}

// Descriptor returns the descriptor registered under id.
func Descriptor(id uint32) (*TypeDescriptor, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if int(id) >= len(registry.descs) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownType, id)
	}
	return registry.descs[id], nil
}

// Bitmap is a fixed-size bit set with one bit per heap word.
type Bitmap struct {
	bits []uint64
	n    int
}

// Reset resizes the bitmap to n bits, all clear, reusing storage.
func (b *Bitmap) Reset(n int) {
	words := (n + 63) / 64
	if cap(b.bits) < words {
		b.bits = make([]uint64, words)
	} else {
		b.bits = b.bits[:words]
		clear(b.bits)
	}
	b.n = n
}

// Len returns the number of bits.
func (b *Bitmap) Len() int { return b.n }

// Set marks word i. Out-of-range indexes are ignored.
func (b *Bitmap) Set(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.bits[i>>6] |= 1 << (uint(i) & 63)
}

// Has reports whether word i is marked.
func (b *Bitmap) Has(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.bits[i>>6]&(1<<(uint(i)&63)) != 0
}

// Next returns the first marked index >= i, or -1.
func (b *Bitmap) Next(i int) int {
	if i < 0 {
		i = 0
	}
	for w := i >> 6; w < len(b.bits); w++ {
		word := b.bits[w]
		if w == i>>6 {
			word &= ^uint64(0) << (uint(i) & 63)
		}
		if word != 0 {
			idx := w<<6 + bits.TrailingZeros64(word)
			if idx >= b.n {
				return -1
			}
			return idx
		}
	}
	return -1
}
