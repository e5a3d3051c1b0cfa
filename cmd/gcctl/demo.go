package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/heap/gc"
	"github.com/joshuapare/gckit/internal/format"
)

var demoMemcheck bool

func init() {
	cmd := newDemoCmd()
	cmd.Flags().BoolVar(&demoMemcheck, "memcheck", false, "Validate the collection")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through one collection of a small object graph",
		Long: `The demo command builds a rooted chain A -> B -> C, a self-referencing
block, a cell referenced only from the machine stack and a finalizable
unreachable cell, runs one collection, and shows where everything moved.

Example:
  gcctl demo
  gcctl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

type demoObject struct {
	Name   string `json:"name"`
	Before string `json:"before"`
	After  string `json:"after,omitempty"`
	Value  uint64 `json:"value"`
	Note   string `json:"note,omitempty"`
}

type demoResult struct {
	FromArena  uint64       `json:"from_arena"`
	ToArena    uint64       `json:"to_arena"`
	Objects    []demoObject `json:"objects"`
	Finalized  []string     `json:"finalized"`
	HookCalled bool         `json:"hook_called"`
}

func runDemo() error {
	res, err := demo(demoMemcheck)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("Collected arena %d into arena %d\n\n", res.FromArena, res.ToArena)
	for _, o := range res.Objects {
		after := o.After
		if after == "" {
			after = "(reclaimed)"
		}
		printInfo("  %-6s %s -> %s  value=%d", o.Name, o.Before, after, o.Value)
		if o.Note != "" {
			printInfo("  %s", o.Note)
		}
		printInfo("\n")
	}
	printInfo("\nFinalized: %v\n", res.Finalized)
	printInfo("Post-collect hook called: %v\n", res.HookCalled)
	return nil
}

func demo(memcheck bool) (*demoResult, error) {
	opts := gc.DefaultOptions()
	opts.ArenaSize = 64 << 10
	opts.Memcheck = memcheck
	th, err := gc.NewThreadHeap(opts)
	if err != nil {
		return nil, err
	}
	defer th.Close()

	cell := func(next heap.Addr, v uint64) (heap.Addr, error) {
		p, err := th.Alloc(cellSize, preciseCell, 0)
		if err != nil {
			return heap.Nil, err
		}
		if err := th.StoreAddr(p, next); err != nil {
			return heap.Nil, err
		}
		return p, th.Store(p+format.WordSize, v)
	}

	c, err := cell(heap.Nil, 3)
	if err != nil {
		return nil, err
	}
	b, err := cell(c, 2)
	if err != nil {
		return nil, err
	}
	a, err := cell(b, 1)
	if err != nil {
		return nil, err
	}
	self, err := th.Alloc(cellSize, heap.Words, 0)
	if err != nil {
		return nil, err
	}
	if err := th.StoreAddr(self, self); err != nil {
		return nil, err
	}
	onStack, err := cell(heap.Nil, 4)
	if err != nil {
		return nil, err
	}
	dead, err := th.Alloc(cellSize, heap.Bytes, format.FlagFinalize)
	if err != nil {
		return nil, err
	}

	res := &demoResult{FromArena: th.Current().ID()}
	roots := []uint64{uint64(a), uint64(self)}
	th.RegisterRoot(roots)
	if err := th.Stack().Push(uint64(onStack)); err != nil {
		return nil, err
	}
	th.SetSystemFinalizer(func(p heap.Addr, _ []byte) {
		name := p.String()
		if p == dead {
			name = "dead"
		}
		res.Finalized = append(res.Finalized, name)
	})
	th.RegisterPostCollectHook(func() { res.HookCalled = true })

	th.Collect()
	res.ToArena = th.Current().ID()

	// follow the chain from the relocated root
	na := heap.Addr(roots[0])
	nb, err := th.LoadAddr(na)
	if err != nil {
		return nil, err
	}
	nc, err := th.LoadAddr(nb)
	if err != nil {
		return nil, err
	}
	nself := heap.Addr(roots[1])
	selfWord, err := th.LoadAddr(nself)
	if err != nil {
		return nil, err
	}
	top, err := th.Stack().Slot(0)
	if err != nil {
		return nil, err
	}

	for _, o := range []struct {
		name          string
		before, after heap.Addr
		v             uint64
		note          string
	}{
		{"A", a, na, 1, "rooted"},
		{"B", b, nb, 2, "reached from A"},
		{"C", c, nc, 3, "reached from B"},
		{"self", self, nself, 0, fmt.Sprintf("word 0 = %v", selfWord)},
		{"stack", onStack, heap.Addr(top), 4, "conservative stack root"},
		{"dead", dead, heap.Nil, 0, "unreachable, finalizable"},
	} {
		obj := demoObject{Name: o.name, Before: o.before.String(), Value: o.v, Note: o.note}
		if o.after != heap.Nil {
			obj.After = o.after.String()
		}
		res.Objects = append(res.Objects, obj)
	}
	return res, nil
}
