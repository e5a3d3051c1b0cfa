package heap

import (
	"fmt"

	"github.com/joshuapare/gckit/internal/buf"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/mmap"
)

// Stack is the machine stack of a thread heap: the word stack the bytecode
// VM keeps its operands and frames on. It grows downward; the live range is
// [sp, top). The collector scans the live range conservatively.
type Stack struct {
	mem     []byte
	release func() error
	sp      int
	skip    [][2]int
}

// NewStack maps a stack of size bytes, rounded up to the page size.
func NewStack(size int) (*Stack, error) {
	if size < format.WordSize {
		return nil, fmt.Errorf("heap: stack size %d too small", size)
	}
	size = int(format.AlignPage(uint64(size), uint64(mmap.PageSize())))
	mem, release, err := mmap.Anon(size)
	if err != nil {
		return nil, fmt.Errorf("heap: new stack: %w", err)
	}
	return &Stack{mem: mem, release: release, sp: size}, nil
}

// Bounds returns the live range [lo, hi) as byte offsets into Bytes.
func (s *Stack) Bounds() (lo, hi int, err error) {
	if s == nil || s.mem == nil {
		return 0, 0, ErrReleased
	}
	return s.sp, len(s.mem), nil
}

// Bytes returns the stack's backing memory.
func (s *Stack) Bytes() []byte { return s.mem }

// Depth returns the number of pushed words.
func (s *Stack) Depth() int { return (len(s.mem) - s.sp) / format.WordSize }

// Push pushes v.
func (s *Stack) Push(v uint64) error {
	if s.mem == nil {
		return ErrReleased
	}
	if s.sp < format.WordSize {
		return ErrStackOverflow
	}
	s.sp -= format.WordSize
	format.PutU64(s.mem, s.sp, v)
	return nil
}

// Pop pops the top word.
func (s *Stack) Pop() (uint64, error) {
	if s.mem == nil {
		return 0, ErrReleased
	}
	if s.sp >= len(s.mem) {
		return 0, ErrStackUnderflow
	}
	v := format.ReadU64(s.mem, s.sp)
	s.sp += format.WordSize
	return v, nil
}

// slotOffset maps a slot index (0 is the first word pushed) to its offset.
func (s *Stack) slotOffset(i int) (int, error) {
	if i < 0 || i >= s.Depth() {
		return 0, fmt.Errorf("%w: slot %d of %d", ErrBadAddr, i, s.Depth())
	}
	return len(s.mem) - (i+1)*format.WordSize, nil
}

// Slot reads slot i, counted from the bottom of the stack.
func (s *Stack) Slot(i int) (uint64, error) {
	off, err := s.slotOffset(i)
	if err != nil {
		return 0, err
	}
	return format.ReadU64(s.mem, off), nil
}

// SetSlot overwrites slot i, counted from the bottom of the stack.
func (s *Stack) SetSlot(i int, v uint64) error {
	off, err := s.slotOffset(i)
	if err != nil {
		return err
	}
	format.PutU64(s.mem, off, v)
	return nil
}

// Exclude marks the bytes [off, off+n) as never holding pointers, e.g. a VM
// red zone. Candidates starting inside an excluded range are skipped.
func (s *Stack) Exclude(off, n int) error {
	if _, err := buf.CheckRange(len(s.mem), off, n); err != nil {
		return fmt.Errorf("heap: exclude: %w", err)
	}
	s.skip = append(s.skip, [2]int{off, off + n})
	return nil
}

// Excluded reports whether a candidate at off must be skipped.
func (s *Stack) Excluded(off int) bool {
	for _, r := range s.skip {
		if off >= r[0] && off < r[1] {
			return true
		}
	}
	return false
}

// Release unmaps the stack.
func (s *Stack) Release() error {
	if s.mem == nil {
		return nil
	}
	s.mem = nil
	return s.release()
}
