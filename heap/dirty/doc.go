// Package dirty records which byte ranges of an arena were written.
//
// # Overview
//
// During a collection every header and data copy written into to-space is
// recorded. Two uses follow from the record:
//
//   - Write-once checking: to-space cells are written exactly once per
//     collection, so no two recorded ranges may overlap (see Overlap).
//   - Page accounting: the number of distinct 4KB pages touched, reported as
//     gc.CollectionStats.PagesTouched for memcheck collections (see Pages).
//
// # Usage
//
//	tracker := dirty.NewTracker()
//	bump := alloc.NewBump(toSpace, tracker)
//	// ... copy allocations ...
//	if a, b, ok := tracker.Overlap(); ok {
//	    // a cell was written twice
//	}
package dirty
