// Package alloc carves allocations out of an arena.
//
// # Overview
//
// Allocation is a bump of the arena's next-free pointer: a 64-byte header is
// written immediately before the data, the physical length is rounded up to
// 16 bytes, and the header records the type's scan descriptor so every
// future collection scans the allocation the same way.
//
// # Entry Points
//
//   - Carve(arena, req): the primitive used by the collector to create an
//     allocation's new home. It never registers finalizers.
//   - FromArena(arena, n, desc, finalize): the allocator contract used by
//     runtime clients; registers a finalizer record when asked.
//   - Bump: a stateful allocator bound to one arena that reports every
//     written range to a DirtyTracker.
//
// # Usage Example
//
//	h, err := alloc.FromArena(a, 24, heap.Words, false)
//	if err != nil {
//	    return err // heap.ErrNoSpace: collect and retry
//	}
//	data := h.Payload()
//
// # Memcheck
//
// In memcheck arenas every allocation is one word longer, the trailing word
// holds the guard sentinel, and the allocation site is recorded.
//
// # Thread Safety
//
// Not thread-safe; an arena belongs to one thread heap.
package alloc
