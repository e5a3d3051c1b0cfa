// Package verify provides debug validation of a finished collection.
// It is only run in memcheck builds and by tests.
package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/dirty"
	"github.com/joshuapare/gckit/internal/format"
)

// Validation error types.
const (
	TypeHeapCorruption   = "HeapCorruption"
	TypeMissedAllocation = "MissedAllocation"
	TypeWriteOnce        = "WriteOnce"
)

// ValidationError describes one validation finding.
type ValidationError struct {
	Type    string
	Message string
	Addr    heap.Addr // heap.Nil if N/A
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Addr != heap.Nil {
		return fmt.Sprintf("%s at 0x%X: %s", e.Type, uint64(e.Addr), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Fatal reports whether the finding is always fatal. Missed allocations are
// only fatal in strict mode; corruption and double writes always are.
func (e *ValidationError) Fatal() bool {
	return e.Type != TypeMissedAllocation
}

// Collection runs every check against a from-space that has been traced and
// the write record of its to-space. writes may be nil.
func Collection(from *heap.Arena, writes *dirty.Tracker) []error {
	errs := Guards(from)
	errs = append(errs, MissedPointers(from)...)
	if writes != nil {
		if err := WriteOnce(writes); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Guards checks the front guard and, in memcheck arenas, the end guard of
// every allocation in a.
func Guards(a *heap.Arena) []error {
	var errs []error
	for h := range a.Headers() {
		err := h.CheckGuard()
		if err == nil {
			err = h.CheckEndGuard()
		}
		if err == nil {
			continue
		}
		var ge *heap.GuardError
		details := map[string]interface{}{
			"type": typeName(h),
			"site": a.SiteOf(h).String(),
		}
		if errors.As(err, &ge) {
			details["field"] = ge.Field
			details["expected"] = ge.Expected
			details["actual"] = ge.Actual
		}
		errs = append(errs, &ValidationError{
			Type:    TypeHeapCorruption,
			Message: fmt.Sprintf("%s (type %s, allocated at %s)", err, typeName(h), a.SiteOf(h)),
			Addr:    h.Addr(),
			Details: details,
		})
	}
	return errs
}

// MissedPointers checks that every in-range word of every forwarded
// allocation refers to an allocation that was forwarded too. A hit means
// the tracer never visited a pointer: a scanning bug, or a pointer stored in
// a field its descriptor does not mark.
func MissedPointers(from *heap.Arena) []error {
	var errs []error
	for h := range from.Headers() {
		if h.Forward() == heap.Nil {
			continue
		}
		base := h.Offset() + format.HeaderSize
		for i := range h.Words() {
			v := from.ReadWord(base + i*format.WordSize)
			if !from.InRange(v) {
				continue
			}
			target, ok := from.Lookup(v)
			if !ok || target.Forward() != heap.Nil {
				continue
			}
			errs = append(errs, &ValidationError{
				Type: TypeMissedAllocation,
				Message: fmt.Sprintf("possible missed allocation: word %d of %s (allocated at %s) points to unforwarded %s at 0x%X",
					i, typeName(h), from.SiteOf(h), typeName(target), uint64(target.Addr())),
				Addr: h.Addr(),
				Details: map[string]interface{}{
					"word":   i,
					"value":  v,
					"target": target.Addr(),
				},
			})
		}
	}
	return errs
}

// WriteOnce checks that no to-space byte was written twice.
func WriteOnce(writes *dirty.Tracker) error {
	a, b, ok := writes.Overlap()
	if !ok {
		return nil
	}
	return &ValidationError{
		Type:    TypeWriteOnce,
		Message: fmt.Sprintf("to-space range [0x%X,0x%X) overlaps [0x%X,0x%X)", a.Off, a.End(), b.Off, b.End()),
		Details: map[string]interface{}{"first": a, "second": b},
	}
}

func typeName(h heap.Header) string {
	d, err := h.Descriptor()
	if err != nil {
		return fmt.Sprintf("type#%d", h.TypeID())
	}
	return d.Name
}
