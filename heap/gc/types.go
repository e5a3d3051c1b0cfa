package gc

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/internal/format"
)

// typeTable maps type names to their type objects. Its address words are
// an internal root, so type objects survive every collection.
type typeTable struct {
	index map[string]int
	words []uint64
	entry *heap.RootEntry
}

func (tt *typeTable) init(roots *heap.RootSet) {
	tt.index = make(map[string]int)
	tt.entry = roots.Register(nil)
}

func (tt *typeTable) add(name string, p heap.Addr) {
	tt.index[name] = len(tt.words)
	tt.words = append(tt.words, uint64(p))
	tt.entry.Words = tt.words
}

// type object payload:
//
//	0x00  size  u64  instance size in bytes
//	0x08  name  [n]byte
const typeObjectNameOffset = 8

// DefineType returns the type object for name, allocating it on first use.
// A type object is a TypeObject allocation reachable by name until the
// heap is closed. Redefining a name with a different size fails.
func (t *ThreadHeap) DefineType(name string, size uint64) (heap.Addr, error) {
	if p, ok := t.LookupType(name); ok {
		got, _, err := t.TypeInfo(p)
		if err != nil {
			return heap.Nil, err
		}
		if got != size {
			return heap.Nil, fmt.Errorf("%w: %q is %d bytes, not %d", ErrTypeExists, name, got, size)
		}
		return p, nil
	}

	req := alloc.Request{
		Len:   uint32(typeObjectNameOffset + len(name)),
		Desc:  heap.Bytes,
		Flags: format.FlagTypeObject,
	}
	if t.opts.Memcheck {
		req.Site = alloc.CallerSite(1)
	}
	h, err := t.alloc(req)
	if err != nil {
		return heap.Nil, fmt.Errorf("gc: define type %q: %w", name, err)
	}
	payload := h.Payload()
	binary.LittleEndian.PutUint64(payload, size)
	copy(payload[typeObjectNameOffset:], name)
	t.types.add(name, h.DataAddr())
	return h.DataAddr(), nil
}

// LookupType returns the current address of the type object for name.
func (t *ThreadHeap) LookupType(name string) (heap.Addr, bool) {
	i, ok := t.types.index[name]
	if !ok {
		return heap.Nil, false
	}
	return heap.Addr(t.types.words[i]), true
}

// TypeInfo decodes the type object at p.
func (t *ThreadHeap) TypeInfo(p heap.Addr) (size uint64, name string, err error) {
	h, err := t.Header(p)
	if err != nil {
		return 0, "", err
	}
	if !h.Has(format.FlagTypeObject) || h.DataAddr() != p {
		return 0, "", fmt.Errorf("%w: %v is not a type object", heap.ErrBadAddr, p)
	}
	payload := h.Payload()
	return binary.LittleEndian.Uint64(payload), string(payload[typeObjectNameOffset:]), nil
}

// Types returns the number of defined types.
func (t *ThreadHeap) Types() int { return len(t.types.words) }
