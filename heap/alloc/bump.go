package alloc

import (
	"fmt"
	"runtime"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/internal/format"
)

// Carve bump-allocates req in a. The returned header has its guard set, a
// cleared forward address and an alloc length of at least req.Len rounded to
// the arena alignment. It returns heap.ErrNoSpace when the arena is full;
// memory outside [data_start, heap_end) is never handed out.
func Carve(a *heap.Arena, req Request) (heap.Header, error) {
	if req.Desc == nil {
		return heap.Header{}, ErrNoDescriptor
	}
	if uint64(req.Len) > format.MaxRequestLen {
		return heap.Header{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, req.Len)
	}
	allocLen := format.AllocLen(uint64(req.Len), a.Memcheck())

	h, err := a.Reserve(int(allocLen))
	if err != nil {
		return heap.Header{}, err
	}
	// Arena memory is zero on first use; reserved headers are never reused.
	h.Init(heap.HeaderInit{
		AllocLen:   uint32(allocLen),
		RequestLen: req.Len,
		Scan:       req.Desc.Scan,
		TypeID:     req.Desc.ID,
		Flags:      req.Flags,
		Hash:       req.Hash,
	})
	if a.Memcheck() {
		h.WriteEndGuard()
		a.RecordSite(h, req.Site)
	}
	return h, nil
}

// FromArena allocates n bytes of type desc in a, registering a finalizer
// record on the arena when finalize is set.
func FromArena(a *heap.Arena, n uint32, desc *heap.TypeDescriptor, finalize bool) (heap.Header, error) {
	req := Request{Len: n, Desc: desc}
	if finalize {
		req.Flags |= format.FlagFinalize
	}
	if a.Memcheck() {
		req.Site = CallerSite(1)
	}
	return FromArenaRequest(a, req)
}

// FromArenaRequest is FromArena for a fully specified request.
func FromArenaRequest(a *heap.Arena, req Request) (heap.Header, error) {
	h, err := Carve(a, req)
	if err != nil {
		return heap.Header{}, err
	}
	if req.Flags&format.FlagFinalize != 0 {
		a.Finalizers().Add(h.Addr())
	}
	return h, nil
}

// CallerSite returns the source location skip frames above its caller.
func CallerSite(skip int) heap.Site {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return heap.Site{}
	}
	return heap.Site{File: file, Line: line}
}

// Bump allocates into one arena and reports every range it writes to an
// optional DirtyTracker. The collector uses it for to-space.
type Bump struct {
	a  *heap.Arena
	dt DirtyTracker
}

// NewBump binds a bump allocator to a. dt may be nil.
func NewBump(a *heap.Arena, dt DirtyTracker) *Bump {
	return &Bump{a: a, dt: dt}
}

// Arena returns the arena being allocated into.
func (b *Bump) Arena() *heap.Arena { return b.a }

// Alloc carves req and marks the header dirty.
func (b *Bump) Alloc(req Request) (heap.Header, error) {
	h, err := Carve(b.a, req)
	if err != nil {
		return heap.Header{}, err
	}
	if b.dt != nil {
		b.dt.Add(h.Offset(), format.HeaderSize)
	}
	return h, nil
}

// Fill copies src into dst's data and marks the data dirty. src must be
// exactly dst's physical data length.
func (b *Bump) Fill(dst heap.Header, src []byte) error {
	data := dst.Data()
	if len(src) != len(data) {
		return fmt.Errorf("%w: src=%d dst=%d", ErrSizeMismatch, len(src), len(data))
	}
	copy(data, src)
	if b.a.Memcheck() {
		dst.WriteEndGuard()
	}
	if b.dt != nil {
		b.dt.Add(dst.Offset()+format.HeaderSize, len(data))
	}
	return nil
}
