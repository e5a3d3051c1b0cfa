package gc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/gckit/heap"
)

var (
	// ErrInvalidOptions indicates an Options value NewThreadHeap cannot use.
	ErrInvalidOptions = errors.New("gc: invalid options")

	// ErrInvalidCapacity indicates a worklist capacity that is not a power of two >= 2.
	ErrInvalidCapacity = errors.New("gc: worklist capacity must be a power of two >= 2")

	// ErrClosed indicates use of a ThreadHeap after Close.
	ErrClosed = errors.New("gc: thread heap closed")

	// ErrTypeExists indicates DefineType was called with a conflicting size.
	ErrTypeExists = errors.New("gc: type already defined with a different size")
)

// Kind classifies a fatal collector failure.
type Kind int

const (
	// KindHeapCorruption is a guard mismatch or an unreadable header.
	KindHeapCorruption Kind = iota + 1
	// KindResourceExhausted is a failed mapping or an arena over MaxArenaSize.
	KindResourceExhausted
	// KindMissedScan is a possible missed allocation under StrictMemcheck.
	KindMissedScan
	// KindReentrant is an allocation or collection started while collecting,
	// or a collection started from a post-collect hook.
	KindReentrant
	// KindStackUnavailable is a machine stack whose bounds cannot be read.
	KindStackUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindHeapCorruption:
		return "heap corruption"
	case KindResourceExhausted:
		return "resource exhausted"
	case KindMissedScan:
		return "missed scan"
	case KindReentrant:
		return "reentrant collection"
	case KindStackUnavailable:
		return "stack unavailable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FatalError is the value Collect panics with. The heap is unusable after
// one is raised.
type FatalError struct {
	Kind Kind
	Addr heap.Addr // heap.Nil if N/A
	Err  error
}

func (e *FatalError) Error() string {
	if e.Addr != heap.Nil {
		return fmt.Sprintf("gc: fatal %s at %v: %v", e.Kind, e.Addr, e.Err)
	}
	return fmt.Sprintf("gc: fatal %s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(kind Kind, addr heap.Addr, err error) *FatalError {
	return &FatalError{Kind: kind, Addr: addr, Err: err}
}
