package heap

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

var guardOnce = sync.OnceValue(func() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("heap: cannot seed guard: " + err.Error())
	}
	// The top bit keeps the guard outside the address space, so a guard
	// word is never mistaken for a pointer.
	return binary.LittleEndian.Uint64(b[:]) | 1<<63
})

// Guard returns the per-process guard sentinel written into every header.
func Guard() uint64 {
	return guardOnce()
}
