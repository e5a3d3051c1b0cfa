package heap

import (
	"fmt"
	"sync/atomic"
)

// Addr is an address in the runtime's virtual address space.
type Addr uint64

// Nil is the zero address. No arena ever covers it.
const Nil Addr = 0

const (
	// addressSpaceBase is where the first arena is placed.
	addressSpaceBase = 1 << 44

	// rangeGranule is the reservation granularity; consecutive arenas are
	// separated by at least one unused granule.
	rangeGranule = 1 << 20
)

var nextRange atomic.Uint64

func init() {
	nextRange.Store(addressSpaceBase)
}

// reserveRange hands out a fresh, never-reused range of size bytes.
func reserveRange(size uint64) Addr {
	span := (size + rangeGranule - 1) &^ (rangeGranule - 1)
	span += rangeGranule
	end := nextRange.Add(span)
	return Addr(end - span)
}

// Add returns a offset by n bytes.
func (a Addr) Add(n uint64) Addr { return a + Addr(n) }

func (a Addr) String() string { return fmt.Sprintf("0x%X", uint64(a)) }
