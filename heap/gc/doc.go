// Package gc implements the per-thread semi-space copying collector.
//
// # Overview
//
// Every ThreadHeap owns exactly one current arena, a machine stack, a root
// set and a set of external holds. Allocation bumps a pointer through the
// current arena; when it is full the heap collects: a fresh to-space arena
// is mapped, every allocation reachable from the roots is copied into it,
// and the old arena is released.
//
// # Tracing
//
// Tracing is driven by a FIFO worklist of two operations:
//
//   - Forward(location): the word at location points into from-space. If the
//     target allocation was already forwarded, the word is rewritten to the
//     new address (interior offset preserved). Otherwise a same-sized block
//     is carved in to-space, the header's forward address is set, the word
//     is rewritten, the allocation's interior is scanned and a Copy is queued.
//   - Copy(header): the allocation's data is copied to its new block.
//
// A Copy is always queued after the Forwards for the allocation's own
// pointer words, so its bytes are copied only once every pointer inside
// them holds a to-space address. Self references are rewritten inline.
//
// # Roots
//
// Roots are registered word ranges (RegisterRoot), external holds (Hold),
// the type table and the live range of the machine stack. The stack is
// scanned conservatively: any word whose value falls inside from-space is
// a candidate, so an integer that happens to look like a pointer keeps its
// target alive and is rewritten along with it.
//
// # Addresses
//
// heap.Addr values kept in Go variables are not roots. Any Alloc or Collect
// may move the allocation they refer to; keep live addresses in a root, on
// the stack, or behind a Pin.
//
// # Failure
//
// Collect never returns an error. Heap corruption, exhausted resources and
// (in strict memcheck mode) missed pointers panic with a *FatalError.
package gc
