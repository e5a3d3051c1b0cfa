package alloc

import "github.com/joshuapare/gckit/heap"

// Request describes one allocation.
type Request struct {
	// Len is the number of bytes the caller asked for.
	Len uint32
	// Desc is the scan descriptor; required.
	Desc *heap.TypeDescriptor
	// Flags are the format.Flag* bits stored in the header.
	Flags uint8
	// Hash seeds the header's cached hash (copies carry it over).
	Hash [2]uint64
	// Site is recorded in memcheck arenas.
	Site heap.Site
}
