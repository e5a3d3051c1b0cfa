// Package heap defines the managed memory model of the runtime: arenas,
// the allocation header that precedes every allocation, scan descriptors,
// registered roots, cross-thread holds, finalizer records and the machine
// stack the bytecode VM runs on.
//
// # Addresses
//
// Managed memory is addressed with Addr, a 64-bit value in a process-wide
// virtual address space. Every arena reserves a disjoint range of that space
// and ranges are never reused, so a stale pointer into a released arena can
// never alias live memory in a newer one. Heap words, root words and stack
// words all hold raw Addr values; whether a word is a pointer is decided by
// range checks against an arena (conservatively) or by a type's scan
// descriptor (precisely).
//
// # Layout
//
// Each allocation is a 64-byte header followed by its data:
//
//	header                          data
//	[guard|next|fwd|arena|len|...]  [word 0][word 1]...[end guard]
//
// The header layout lives in internal/format. The arena keeps a sorted index
// of header offsets so the header of any interior pointer is found with a
// binary search; the guard word is still written and verified on every
// lookup to detect corruption.
//
// # Thread Safety
//
// An Arena is owned by exactly one thread heap and is not safe for concurrent
// use. Holds is the only type meant to be shared across goroutines and
// guards itself with a mutex.
//
// # Related Packages
//
//   - github.com/joshuapare/gckit/heap/alloc: bump allocation into an arena
//   - github.com/joshuapare/gckit/heap/gc: the copying collector and ThreadHeap
//   - github.com/joshuapare/gckit/heap/verify: debug validation of a collection
package heap
