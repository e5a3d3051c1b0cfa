// Package buf contains bounds-checked helpers for reading and writing words
// in raw memory regions (stacks, arenas) at arbitrary byte offsets.
package buf

import "encoding/binary"

// WordAt reads the little-endian word at b[off:off+8]. ok is false when the
// word does not fit; unaligned offsets are allowed.
func WordAt(b []byte, off int) (uint64, bool) {
	w, ok := Slice(b, off, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(w), true
}

// PutWordAt writes v as a little-endian word at b[off:off+8]. It reports
// false without writing when the word does not fit.
func PutWordAt(b []byte, off int, v uint64) bool {
	w, ok := Slice(b, off, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(w, v)
	return true
}
