package format

// CheckHeader reports whether a header fits in b at off and is aligned.
func CheckHeader(b []byte, off int) error {
	if off < 0 || off+HeaderSize > len(b) {
		return ErrTruncated
	}
	if off&ArenaAlignmentMask != 0 {
		return ErrMisaligned
	}
	return nil
}

// ReadFlags returns the flag byte of the header at off.
func ReadFlags(b []byte, off int) uint8 {
	return b[off+FlagsOffset]
}

// PutFlags stores the flag byte of the header at off.
func PutFlags(b []byte, off int, f uint8) {
	b[off+FlagsOffset] = f
}

// ReadScanKind returns the scan kind byte of the header at off.
func ReadScanKind(b []byte, off int) uint8 {
	return b[off+ScanKindOffset]
}

// PutScanKind stores the scan kind byte of the header at off.
func PutScanKind(b []byte, off int, k uint8) {
	b[off+ScanKindOffset] = k
}
