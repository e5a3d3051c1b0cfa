// Package format describes the in-memory layout of managed allocations: the
// fixed-size header that precedes every allocation's data, its field offsets,
// and the alignment rules the arena allocator and the collector agree on.
//
// All multi-byte fields are little-endian.
package format

const (
	// WordSize is the size of a heap word in bytes. Every pointer slot,
	// root word and stack word is one word wide.
	WordSize = 8

	// WordMask is the bitmask used to align an address down to a word.
	WordMask = WordSize - 1

	// ArenaAlignment is the alignment of every allocation's physical length
	// and of every header start.
	ArenaAlignment = 16

	// ArenaAlignmentMask is ArenaAlignment - 1.
	ArenaAlignmentMask = ArenaAlignment - 1

	// HeaderSize is the size of an allocation header. Data starts exactly
	// HeaderSize bytes after the header.
	HeaderSize = 64

	// EndGuardSize is the size of the trailing guard word reserved at the
	// end of an allocation when memcheck is enabled.
	EndGuardSize = WordSize

	// MaxRequestLen is the largest request the header can describe.
	MaxRequestLen = 1<<32 - HeaderSize - ArenaAlignment
)

// Header field offsets.
//
//	0x00  guard         u64
//	0x08  next addr     u64  one past the allocation's data
//	0x10  forward addr  u64  new data address, 0 while unforwarded
//	0x18  arena id      u64
//	0x20  alloc len     u32  physical data length, 16-aligned
//	0x24  request len   u32
//	0x28  scan kind     u8
//	0x29  flags         u8
//	0x2A  reserved      u16
//	0x2C  type id       u32
//	0x30  cached hash   u128 (lo, hi)
const (
	GuardOffset      = 0x00
	NextAddrOffset   = 0x08
	ForwardOffset    = 0x10
	ArenaIDOffset    = 0x18
	AllocLenOffset   = 0x20
	RequestLenOffset = 0x24
	ScanKindOffset   = 0x28
	FlagsOffset      = 0x29
	TypeIDOffset     = 0x2C
	HashLoOffset     = 0x30
	HashHiOffset     = 0x38
)

// Allocation flags stored at FlagsOffset.
const (
	FlagFinalize     uint8 = 1 << 0
	FlagObjectHeader uint8 = 1 << 1
	FlagTypeObject   uint8 = 1 << 2
)
