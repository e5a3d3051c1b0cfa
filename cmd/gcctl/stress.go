package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/gc"
	"github.com/joshuapare/gckit/internal/format"
)

var (
	stressIterations   int
	stressLive         int
	stressSeed         uint64
	stressArenaSize    string
	stressMaxArena     string
	stressWorklist     int
	stressCollectEvery int
	stressMemcheck     bool
	stressStrict       bool
	stressParanoid     bool
)

// Cells share one layout: word 0 is the next cell, word 1 the cell id.
var (
	preciseCell = heap.MustRegisterType("gcctl.cell", heap.ScanCallback, func(bm *heap.Bitmap, base []byte) {
		bm.Set(0)
	})
	conservativeCell = heap.MustRegisterType("gcctl.cell.conservative", heap.ScanAll, nil)
)

const cellSize = 2 * format.WordSize

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVarP(&stressIterations, "iterations", "n", 100000, "Number of allocations")
	cmd.Flags().IntVar(&stressLive, "live", 256, "Number of root slots kept live")
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&stressArenaSize, "arena-size", "256KB", "Initial arena size (e.g. 64KB, 4MB)")
	cmd.Flags().StringVar(&stressMaxArena, "max-arena-size", "1GB", "Largest arena the heap may grow to")
	cmd.Flags().IntVar(&stressWorklist, "worklist", gc.DefaultWorklistSize, "Worklist capacity (power of two)")
	cmd.Flags().IntVar(&stressCollectEvery, "collect-every", 0, "Force a collection every N allocations (0: only when full)")
	cmd.Flags().BoolVar(&stressMemcheck, "memcheck", false, "Validate every collection")
	cmd.Flags().BoolVar(&stressStrict, "strict", false, "Make every validation finding fatal")
	cmd.Flags().BoolVar(&stressParanoid, "paranoid", false, "Scan the machine stack at every byte offset")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized allocation workload and verify the heap",
		Long: `The stress command allocates linked cells at random, keeps a fixed number
of them live through roots, the machine stack and external holds, and drops
the rest. Every collection must keep the live graph intact and finalize each
dropped finalizable allocation exactly once; the run fails otherwise.

Example:
  gcctl stress
  gcctl stress -n 1000000 --live 4096 --memcheck
  gcctl stress --worklist 2 --collect-every 100 --json
  gcctl stress --arena-size 16KB --max-arena-size 1MB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

type stressResult struct {
	Seed        uint64  `json:"seed"`
	Iterations  int     `json:"iterations"`
	Collections uint64  `json:"collections"`
	Copied      uint64  `json:"copied"`
	CopiedBytes uint64  `json:"copied_bytes"`
	Finalized   uint64  `json:"finalized"`
	Grown       uint64  `json:"grown"`
	Pages       int     `json:"pages_touched,omitempty"`
	ArenaSize   int     `json:"arena_size"`
	Used        int     `json:"used"`
	Occupancy   float64 `json:"occupancy"`
	PauseMicros int64   `json:"pause_us"`
	Verified    int     `json:"verified_cells"`
}

func runStress() error {
	opts := gc.DefaultOptions()
	arenaSize, err := parseSize("--arena-size", stressArenaSize)
	if err != nil {
		return err
	}
	maxArena, err := parseSize("--max-arena-size", stressMaxArena)
	if err != nil {
		return err
	}
	opts.ArenaSize = arenaSize
	opts.MaxArenaSize = maxArena
	opts.WorklistSize = stressWorklist
	opts.Memcheck = stressMemcheck || stressStrict
	opts.StrictMemcheck = stressStrict
	opts.ParanoidStackScan = stressParanoid
	opts.Stats = true

	printVerbose("Running %d iterations with %d live slots (seed %d)\n", stressIterations, stressLive, stressSeed)

	res, err := stress(opts, stressIterations, stressLive, stressCollectEvery, stressSeed)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(res)
	}
	printStressResult(res)
	return nil
}

// parseSize reads a human-readable size such as "256KB" (binary units).
func parseSize(flag, s string) (int, error) {
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", flag, s, err)
	}
	if uint64(b) == 0 || uint64(b) > math.MaxInt32 {
		return 0, fmt.Errorf("%s %q: out of range", flag, s)
	}
	return int(b), nil
}

// stressRun is the state of one workload: the heap plus a shadow of the
// live graph, keyed by cell id.
type stressRun struct {
	th    *gc.ThreadHeap
	rng   *rand.Rand
	slots []uint64
	next  map[uint64]uint64 // cell id -> next cell id, 0 for none
	pins  []*heap.Pin
	ids   uint64

	dropped   uint64 // finalizable garbage allocated
	finalized uint64
}

func stress(opts gc.Options, iterations, live, collectEvery int, seed uint64) (*stressResult, error) {
	if live <= 0 {
		return nil, fmt.Errorf("--live must be positive, got %d", live)
	}
	// the heap belongs to this thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	th, err := gc.NewThreadHeap(opts)
	if err != nil {
		return nil, err
	}
	defer th.Close()

	r := &stressRun{
		th:    th,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		slots: make([]uint64, live),
		next:  make(map[uint64]uint64),
	}
	th.RegisterRoot(r.slots)
	th.SetSystemFinalizer(func(heap.Addr, []byte) { r.finalized++ })

	start := time.Now()
	for i := range iterations {
		if err := r.step(); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		if collectEvery > 0 && (i+1)%collectEvery == 0 {
			th.Collect()
		}
	}
	th.Collect()
	printVerbose("Workload finished in %v\n", time.Since(start))

	verified, err := r.verify()
	if err != nil {
		return nil, err
	}
	if r.finalized != r.dropped {
		return nil, fmt.Errorf("finalized %d allocations, dropped %d", r.finalized, r.dropped)
	}

	s := th.Stats()
	return &stressResult{
		Seed:        seed,
		Iterations:  iterations,
		Collections: s.Collections,
		Copied:      s.Copied,
		CopiedBytes: s.CopiedBytes,
		Finalized:   s.Finalized,
		Grown:       s.Grown,
		Pages:       s.Last.PagesTouched,
		ArenaSize:   s.ArenaSize,
		Used:        s.Used,
		Occupancy:   float64(s.Used) / float64(s.ArenaSize),
		PauseMicros: s.TotalPause.Microseconds(),
		Verified:    verified,
	}, nil
}

// step performs one random mutation.
func (r *stressRun) step() error {
	switch r.rng.IntN(8) {
	case 0:
		// finalizable garbage
		if _, err := r.th.Alloc(24, heap.Bytes, format.FlagFinalize); err != nil {
			return err
		}
		r.dropped++
		return nil
	case 1:
		return r.stackOp()
	case 2:
		return r.holdOp()
	}

	desc := preciseCell
	if r.rng.IntN(2) == 0 {
		desc = conservativeCell
	}
	p, err := r.th.Alloc(cellSize, desc, 0)
	if err != nil {
		return err
	}
	r.ids++
	id := r.ids
	// the link is read after Alloc, which may have moved its target
	link := r.slots[r.rng.IntN(len(r.slots))]
	if err := r.th.Store(p, link); err != nil {
		return err
	}
	if err := r.th.Store(p+format.WordSize, id); err != nil {
		return err
	}
	r.next[id], err = r.cellID(link)
	if err != nil {
		return err
	}
	r.slots[r.rng.IntN(len(r.slots))] = uint64(p)
	return nil
}

// stackOp pushes a live cell onto the machine stack or pops one off.
func (r *stressRun) stackOp() error {
	s := r.th.Stack()
	if s.Depth() >= 64 || (s.Depth() > 0 && r.rng.IntN(2) == 0) {
		_, err := s.Pop()
		return err
	}
	return s.Push(r.slots[r.rng.IntN(len(r.slots))])
}

// holdOp pins a live cell or releases the oldest pin.
func (r *stressRun) holdOp() error {
	if len(r.pins) >= 8 {
		r.th.Release(r.pins[0])
		r.pins = r.pins[1:]
		return nil
	}
	if p := r.slots[r.rng.IntN(len(r.slots))]; p != 0 {
		r.pins = append(r.pins, r.th.Hold(heap.Addr(p)))
	}
	return nil
}

// cellID reads the id of the cell at p; 0 for an empty slot.
func (r *stressRun) cellID(p uint64) (uint64, error) {
	if p == 0 {
		return 0, nil
	}
	return r.th.Load(heap.Addr(p) + format.WordSize)
}

// verify walks every cell reachable from the slots, the stack and the pins
// and checks it against the shadow graph.
func (r *stressRun) verify() (int, error) {
	seen := make(map[uint64]bool)
	var walk func(p uint64) error
	walk = func(p uint64) error {
		for p != 0 {
			id, err := r.cellID(p)
			if err != nil {
				return fmt.Errorf("cell at %v: %w", heap.Addr(p), err)
			}
			if seen[id] {
				return nil
			}
			seen[id] = true
			want, ok := r.next[id]
			if !ok {
				return fmt.Errorf("cell at %v has unknown id %d", heap.Addr(p), id)
			}
			p, err = r.th.Load(heap.Addr(p))
			if err != nil {
				return err
			}
			got, err := r.cellID(p)
			if err != nil {
				return fmt.Errorf("link of cell %d: %w", id, err)
			}
			if got != want {
				return fmt.Errorf("cell %d links to %d, want %d", id, got, want)
			}
		}
		return nil
	}

	for _, p := range r.slots {
		if err := walk(p); err != nil {
			return 0, err
		}
	}
	s := r.th.Stack()
	for i := range s.Depth() {
		p, err := s.Slot(i)
		if err != nil {
			return 0, err
		}
		if err := walk(p); err != nil {
			return 0, fmt.Errorf("stack slot %d: %w", i, err)
		}
	}
	for _, pin := range r.pins {
		if err := walk(uint64(pin.Addr())); err != nil {
			return 0, fmt.Errorf("pin: %w", err)
		}
	}
	return len(seen), nil
}

func printStressResult(res *stressResult) {
	printInfo("Stress run (seed %d)\n", res.Seed)
	printInfo("  Iterations:    %d\n", res.Iterations)
	printInfo("  Collections:   %d\n", res.Collections)
	printInfo("  Copied:        %d allocations, %s\n", res.Copied, formatBytes(int64(res.CopiedBytes)))
	printInfo("  Finalized:     %d\n", res.Finalized)
	printInfo("  Arena:         %s (%.1f%% used, grown %d times)\n", formatBytes(int64(res.ArenaSize)), res.Occupancy*100, res.Grown)
	if res.Pages > 0 {
		printInfo("  Last copy:     %d pages touched\n", res.Pages)
	}
	printInfo("  Total pause:   %v\n", time.Duration(res.PauseMicros)*time.Microsecond)
	printInfo("  Verified:      %d live cells\n", res.Verified)
}
