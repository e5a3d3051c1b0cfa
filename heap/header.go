package heap

import (
	"github.com/joshuapare/gckit/internal/format"
)

// Header is a view of an allocation header inside an arena. The zero value
// is not a valid header.
type Header struct {
	a   *Arena
	off int
}

// HeaderInit holds the fields written when an allocation is carved.
type HeaderInit struct {
	AllocLen   uint32
	RequestLen uint32
	Scan       ScanKind
	TypeID     uint32
	Flags      uint8
	Hash       [2]uint64
}

// Valid reports whether h refers to an arena.
func (h Header) Valid() bool { return h.a != nil }

// Arena returns the arena holding the header.
func (h Header) Arena() *Arena { return h.a }

// Offset returns the header's byte offset within its arena.
func (h Header) Offset() int { return h.off }

// Addr returns the address of the header itself.
func (h Header) Addr() Addr { return h.a.base.Add(uint64(h.off)) }

// DataAddr returns the address of the first data byte.
func (h Header) DataAddr() Addr { return h.Addr().Add(format.HeaderSize) }

func (h Header) u64(field int) uint64     { return format.ReadU64(h.a.mem, h.off+field) }
func (h Header) put64(field int, v uint64) { format.PutU64(h.a.mem, h.off+field, v) }

// Guard returns the stored guard word.
func (h Header) Guard() uint64 { return h.u64(format.GuardOffset) }

// NextAddr returns the address one past the allocation's data.
func (h Header) NextAddr() Addr { return Addr(h.u64(format.NextAddrOffset)) }

// Forward returns the new data address, or Nil if the allocation has not
// been forwarded.
func (h Header) Forward() Addr { return Addr(h.u64(format.ForwardOffset)) }

// SetForward records the allocation's new data address.
func (h Header) SetForward(a Addr) { h.put64(format.ForwardOffset, uint64(a)) }

// ArenaID returns the id of the arena the header was carved from.
func (h Header) ArenaID() uint64 { return h.u64(format.ArenaIDOffset) }

// AllocLen returns the physical data length.
func (h Header) AllocLen() uint32 { return format.ReadU32(h.a.mem, h.off+format.AllocLenOffset) }

// RequestLen returns the requested data length.
func (h Header) RequestLen() uint32 { return format.ReadU32(h.a.mem, h.off+format.RequestLenOffset) }

// Scan returns the allocation's scan kind.
func (h Header) Scan() ScanKind { return ScanKind(format.ReadScanKind(h.a.mem, h.off)) }

// Flags returns the allocation flag byte.
func (h Header) Flags() uint8 { return format.ReadFlags(h.a.mem, h.off) }

// Has reports whether all flags in f are set.
func (h Header) Has(f uint8) bool { return h.Flags()&f == f }

// TypeID returns the scan descriptor id.
func (h Header) TypeID() uint32 { return format.ReadU32(h.a.mem, h.off+format.TypeIDOffset) }

// Descriptor resolves the header's scan descriptor.
func (h Header) Descriptor() (*TypeDescriptor, error) { return Descriptor(h.TypeID()) }

// Hash returns the memoized hash, zero when not yet computed.
func (h Header) Hash() [2]uint64 {
	return [2]uint64{h.u64(format.HashLoOffset), h.u64(format.HashHiOffset)}
}

// SetHash stores the memoized hash.
func (h Header) SetHash(v [2]uint64) {
	h.put64(format.HashLoOffset, v[0])
	h.put64(format.HashHiOffset, v[1])
}

// Init writes a fresh header: guard, extent, owning arena and the given
// fields. The forward address is cleared.
func (h Header) Init(in HeaderInit) {
	h.put64(format.GuardOffset, Guard())
	h.put64(format.NextAddrOffset, uint64(h.DataAddr().Add(uint64(in.AllocLen))))
	h.put64(format.ForwardOffset, 0)
	h.put64(format.ArenaIDOffset, h.a.id)
	format.PutU32(h.a.mem, h.off+format.AllocLenOffset, in.AllocLen)
	format.PutU32(h.a.mem, h.off+format.RequestLenOffset, in.RequestLen)
	format.PutScanKind(h.a.mem, h.off, uint8(in.Scan))
	format.PutFlags(h.a.mem, h.off, in.Flags)
	format.PutU32(h.a.mem, h.off+format.TypeIDOffset, in.TypeID)
	h.SetHash(in.Hash)
}

// CheckGuard verifies the front guard.
func (h Header) CheckGuard() error {
	if g := h.Guard(); g != Guard() {
		return &GuardError{Header: h.Addr(), Field: "guard", Expected: Guard(), Actual: g}
	}
	return nil
}

// endGuardOffset is the arena offset of the trailing guard word.
func (h Header) endGuardOffset() int {
	return h.off + format.HeaderSize + int(h.AllocLen()) - format.EndGuardSize
}

// WriteEndGuard stores the trailing guard word. Only meaningful in arenas
// created with memcheck.
func (h Header) WriteEndGuard() {
	format.PutU64(h.a.mem, h.endGuardOffset(), Guard())
}

// CheckEndGuard verifies the trailing guard word. It is a no-op for arenas
// without memcheck.
func (h Header) CheckEndGuard() error {
	if !h.a.memcheck {
		return nil
	}
	if g := format.ReadU64(h.a.mem, h.endGuardOffset()); g != Guard() {
		return &GuardError{Header: h.Addr(), Field: "end guard", Expected: Guard(), Actual: g}
	}
	return nil
}

// Contains reports whether v points into the allocation, header included.
func (h Header) Contains(v uint64) bool {
	return v >= uint64(h.Addr()) && v < uint64(h.NextAddr())
}

// Data returns the allocation's physical data [data, next). The slice
// aliases arena memory and is invalid once the arena is released.
func (h Header) Data() []byte {
	start := h.off + format.HeaderSize
	return h.a.mem[start : start+int(h.AllocLen()) : start+int(h.AllocLen())]
}

// Payload returns the requested bytes of the allocation's data.
func (h Header) Payload() []byte {
	return h.Data()[:h.RequestLen()]
}

// Words returns the number of whole words in the physical data.
func (h Header) Words() int {
	return int(h.AllocLen()) / format.WordSize
}
