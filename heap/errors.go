package heap

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates the arena has no room left for the request.
	ErrNoSpace = errors.New("heap: arena exhausted")

	// ErrBadAddr indicates an address outside the arena or not inside any allocation.
	ErrBadAddr = errors.New("heap: bad address")

	// ErrReleased indicates use of an arena or stack after its memory was released.
	ErrReleased = errors.New("heap: memory released")

	// ErrStackOverflow indicates a push past the low end of the machine stack.
	ErrStackOverflow = errors.New("heap: stack overflow")

	// ErrStackUnderflow indicates a pop from an empty machine stack.
	ErrStackUnderflow = errors.New("heap: stack underflow")

	// ErrUnknownType indicates a type id with no registered descriptor.
	ErrUnknownType = errors.New("heap: unknown type descriptor")

	// ErrBadDescriptor indicates a descriptor that cannot be registered.
	ErrBadDescriptor = errors.New("heap: invalid type descriptor")
)

// GuardError reports a guard word that does not hold the process guard.
type GuardError struct {
	Header   Addr
	Field    string // "guard" or "end guard"
	Expected uint64
	Actual   uint64
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("heap: %s mismatch at 0x%X: expected 0x%016X, got 0x%016X",
		e.Field, uint64(e.Header), e.Expected, e.Actual)
}
