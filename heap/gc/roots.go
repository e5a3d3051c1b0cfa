package gc

import (
	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/internal/format"
)

// scanRoots seeds the worklist from every registered root word.
func (t *tracer) scanRoots(entries []*heap.RootEntry) {
	t.roots = entries
	for ei, e := range entries {
		for wi := range e.Words {
			t.seed(item{kind: locRoot, region: uint32(ei), off: uint64(wi)})
		}
	}
}

// scanHolds seeds the worklist from the external holds. pins must stay
// frozen until the trace is drained.
func (t *tracer) scanHolds(pins []*heap.Pin) {
	t.pins = pins
	for i := range pins {
		t.seed(item{kind: locHold, region: uint32(i)})
	}
}

// scanStack seeds the worklist from the live range of s, conservatively.
// With perByte set every byte offset is a candidate, not just aligned words.
func (t *tracer) scanStack(s *heap.Stack, perByte bool) error {
	lo, hi, err := s.Bounds()
	if err != nil {
		return err
	}
	t.stack = s
	stride := format.WordSize
	if perByte {
		stride = 1
	}
	for off := lo; off+format.WordSize <= hi; off += stride {
		if s.Excluded(off) {
			continue
		}
		t.seed(item{kind: locStack, off: uint64(off)})
	}
	return nil
}
