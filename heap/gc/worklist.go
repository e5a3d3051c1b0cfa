package gc

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/gckit/internal/mmap"
)

type op uint8

const (
	opForward op = iota + 1
	opCopy
)

// locKind says which memory a worklist location refers to.
type locKind uint8

const (
	// locArena: off is a byte offset into from-space.
	locArena locKind = iota + 1
	// locRoot: region is the root entry index, off the word index.
	locRoot
	// locStack: off is a byte offset into the machine stack.
	locStack
	// locHold: region is the index of the pin in the frozen hold set.
	locHold
)

// item is one unit of tracing work. A Copy carries the from-space header
// offset in off.
type item struct {
	off    uint64
	region uint32
	op     op
	kind   locKind
}

const itemSize = 16

//	0x00  off     u64
//	0x08  region  u32
//	0x0C  op      u8
//	0x0D  kind    u8
func (it item) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], it.off)
	binary.LittleEndian.PutUint32(b[8:12], it.region)
	b[12] = uint8(it.op)
	b[13] = uint8(it.kind)
}

func decodeItem(b []byte) item {
	return item{
		off:    binary.LittleEndian.Uint64(b[0:8]),
		region: binary.LittleEndian.Uint32(b[8:12]),
		op:     op(b[12]),
		kind:   locKind(b[13]),
	}
}

// worklist is a bounded FIFO ring over its own anonymous mapping, so it
// does not depend on either arena's lifetime.
//
// NOT thread-safe.
type worklist struct {
	mem     []byte
	release func() error
	mask    uint64
	head    uint64
	tail    uint64
}

func newWorklist(capacity int) (*worklist, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrInvalidCapacity
	}
	mem, release, err := mmap.Anon(capacity * itemSize)
	if err != nil {
		return nil, fmt.Errorf("gc: worklist: %w", err)
	}
	return &worklist{mem: mem, release: release, mask: uint64(capacity - 1)}, nil
}

func (w *worklist) cap() int { return int(w.mask + 1) }

func (w *worklist) len() int { return int(w.tail - w.head) }

// push appends it; it reports false when the ring is full.
func (w *worklist) push(it item) bool {
	if w.tail-w.head > w.mask {
		return false
	}
	i := (w.tail & w.mask) * itemSize
	it.encode(w.mem[i : i+itemSize])
	w.tail++
	return true
}

// pop removes the oldest item.
func (w *worklist) pop() (item, bool) {
	if w.head == w.tail {
		return item{}, false
	}
	i := (w.head & w.mask) * itemSize
	it := decodeItem(w.mem[i : i+itemSize])
	w.head++
	return it, true
}

func (w *worklist) close() error {
	if w.mem == nil {
		return nil
	}
	w.mem = nil
	return w.release()
}
