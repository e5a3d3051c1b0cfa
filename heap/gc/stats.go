package gc

import "time"

// CollectionStats describes one collection.
type CollectionStats struct {
	FromSize    int     // from-space size in bytes
	ToSize      int     // to-space size in bytes
	Copied      int     // allocations copied
	CopiedBytes int     // header and data bytes copied
	Finalized   int     // finalizers run
	Occupancy   float64 // to-space occupancy after tracing, 0..1
	Grow        bool    // the next collection doubles the arena
	MaxWorklist int     // deepest the worklist got
	// PagesTouched counts the distinct to-space pages written while
	// copying. Only memcheck collections track writes; it is 0 otherwise.
	PagesTouched int
	Pause        time.Duration
}

// Stats aggregates the collections of one thread heap. Counters other than
// Collections, ArenaSize and Used are only maintained with Options.Stats.
type Stats struct {
	Collections uint64
	ArenaSize   int
	Used        int

	Copied      uint64
	CopiedBytes uint64
	Finalized   uint64
	Grown       uint64
	TotalPause  time.Duration
	Last        CollectionStats
}

func (s *Stats) record(c CollectionStats) {
	s.Copied += uint64(c.Copied)
	s.CopiedBytes += uint64(c.CopiedBytes)
	s.Finalized += uint64(c.Finalized)
	if c.ToSize > c.FromSize {
		s.Grown++
	}
	s.TotalPause += c.Pause
	s.Last = c
}
