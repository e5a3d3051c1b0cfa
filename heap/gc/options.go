package gc

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultArenaSize is the size of a thread's first arena.
	DefaultArenaSize = 1 << 20

	// DefaultMaxArenaSize caps growth; a collection that would need a larger
	// to-space fails with KindResourceExhausted.
	DefaultMaxArenaSize = 1 << 30

	// DefaultStackSize is the size of the machine stack.
	DefaultStackSize = 256 << 10

	// DefaultWorklistSize is the worklist capacity in items.
	DefaultWorklistSize = 1 << 14
)

// Options configures a ThreadHeap.
type Options struct {
	// ArenaSize is the initial arena size in bytes, rounded up to the page size.
	ArenaSize int

	// MaxArenaSize bounds arena growth.
	MaxArenaSize int

	// StackSize is the machine stack size in bytes.
	StackSize int

	// WorklistSize is the worklist capacity; must be a power of two.
	WorklistSize int

	// Memcheck reserves end guards, records allocation sites and validates
	// every collection before from-space is released.
	Memcheck bool

	// StrictMemcheck makes every validation finding fatal, including
	// possible missed allocations.
	StrictMemcheck bool

	// Stats enables per-collection counters (see Stats).
	Stats bool

	// ParanoidStackScan examines every byte offset of the machine stack
	// instead of every word.
	ParanoidStackScan bool

	// Logger receives collection records. Nil uses logger.L.
	Logger *slog.Logger
}

// DefaultOptions returns the default options. The boolean switches default
// to the gc_memcheck, gc_strict, gc_stats and gc_paranoid build tags.
func DefaultOptions() Options {
	return Options{
		ArenaSize:         DefaultArenaSize,
		MaxArenaSize:      DefaultMaxArenaSize,
		StackSize:         DefaultStackSize,
		WorklistSize:      DefaultWorklistSize,
		Memcheck:          memcheckDefault,
		StrictMemcheck:    strictDefault,
		Stats:             statsDefault,
		ParanoidStackScan: paranoidDefault,
	}
}

func (o Options) validate() error {
	if o.ArenaSize <= 0 {
		return fmt.Errorf("%w: arena size %d", ErrInvalidOptions, o.ArenaSize)
	}
	if o.MaxArenaSize < o.ArenaSize {
		return fmt.Errorf("%w: max arena size %d below arena size %d", ErrInvalidOptions, o.MaxArenaSize, o.ArenaSize)
	}
	if o.StackSize <= 0 {
		return fmt.Errorf("%w: stack size %d", ErrInvalidOptions, o.StackSize)
	}
	if o.WorklistSize < 2 || o.WorklistSize&(o.WorklistSize-1) != 0 {
		return fmt.Errorf("%w: worklist size %d", ErrInvalidCapacity, o.WorklistSize)
	}
	return nil
}
