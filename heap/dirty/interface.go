package dirty

// DirtyTracker is the minimal interface for recording written byte ranges.
// Allocators call Add for every header and data range they write.
type DirtyTracker interface {
	// Add marks a byte range as written.
	// off is the offset from the start of the arena, length is the number of bytes.
	Add(off, length int)
}

var _ DirtyTracker = (*Tracker)(nil)
