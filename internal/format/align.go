package format

// AlignUp16 returns n aligned up to the next arena alignment boundary.
//
// Example:
//
//	AlignUp16(1)  = 16
//	AlignUp16(16) = 16
//	AlignUp16(17) = 32
func AlignUp16(n uint64) uint64 {
	return (n + ArenaAlignmentMask) &^ ArenaAlignmentMask
}

// AlignDownWord returns n aligned down to a word boundary.
func AlignDownWord(n uint64) uint64 {
	return n &^ WordMask
}

// AllocLen returns the physical data length for a request of n bytes.
// With memcheck enabled the length also covers the trailing guard word.
func AllocLen(n uint64, memcheck bool) uint64 {
	if memcheck {
		n += EndGuardSize
	}
	if n == 0 {
		n = ArenaAlignment
	}
	return AlignUp16(n)
}

// AlignPage returns n aligned up to a multiple of pageSize (a power of two).
func AlignPage(n, pageSize uint64) uint64 {
	return (n + pageSize - 1) &^ (pageSize - 1)
}
