package main

import (
	"encoding/json"
	"testing"

	"github.com/joshuapare/gckit/heap/gc"
)

func stressOptions(mutate func(*gc.Options)) gc.Options {
	opts := gc.DefaultOptions()
	opts.ArenaSize = 16 << 10
	opts.StackSize = 4 << 10
	opts.Stats = true
	if mutate != nil {
		mutate(&opts)
	}
	return opts
}

func TestStress(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*gc.Options)
		iterations   int
		live         int
		collectEvery int
	}{
		{name: "default", iterations: 20000, live: 64},
		{name: "tiny worklist", mutate: func(o *gc.Options) { o.WorklistSize = 2 }, iterations: 5000, live: 32, collectEvery: 97},
		{name: "memcheck strict", mutate: func(o *gc.Options) { o.Memcheck, o.StrictMemcheck = true, true }, iterations: 5000, live: 32},
		{name: "paranoid stack", mutate: func(o *gc.Options) { o.ParanoidStackScan = true }, iterations: 5000, live: 16, collectEvery: 500},
		{name: "single slot", iterations: 2000, live: 1, collectEvery: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if testing.Short() && tt.iterations > 5000 {
				t.Skip("skipping long stress run in short mode")
			}
			res, err := stress(stressOptions(tt.mutate), tt.iterations, tt.live, tt.collectEvery, 42)
			if err != nil {
				t.Fatalf("stress() error = %v", err)
			}
			if res.Collections == 0 {
				t.Errorf("expected at least one collection")
			}
			if res.Verified == 0 && tt.live > 1 {
				t.Errorf("expected live cells to be verified")
			}
			if res.Iterations != tt.iterations {
				t.Errorf("iterations = %d, want %d", res.Iterations, tt.iterations)
			}
		})
	}
}

func TestStress_Deterministic(t *testing.T) {
	a, err := stress(stressOptions(nil), 3000, 16, 0, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := stress(stressOptions(nil), 3000, 16, 0, 7)
	if err != nil {
		t.Fatal(err)
	}
	if a.Verified != b.Verified || a.Collections != b.Collections || a.Finalized != b.Finalized {
		t.Errorf("same seed, different runs: %+v vs %+v", a, b)
	}
}

func TestStress_InvalidLive(t *testing.T) {
	if _, err := stress(stressOptions(nil), 10, 0, 0, 1); err == nil {
		t.Error("expected error for --live 0")
	}
}

func TestRunStress_JSON(t *testing.T) {
	resetFlags()
	defer resetFlags()
	jsonOut = true
	stressIterations, stressLive, stressSeed = 2000, 8, 3
	stressArenaSize, stressMaxArena, stressWorklist, stressCollectEvery = "16KB", "1GB", 16, 100

	output, err := captureOutput(t, runStress)
	if err != nil {
		t.Fatalf("runStress() error = %v\nOutput: %s", err, output)
	}
	assertJSON(t, output)

	var res stressResult
	if err := json.Unmarshal([]byte(output), &res); err != nil {
		t.Fatal(err)
	}
	if res.Seed != 3 || res.Iterations != 2000 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRunStress_Text(t *testing.T) {
	resetFlags()
	defer resetFlags()
	stressIterations, stressLive, stressSeed = 1000, 8, 3
	stressArenaSize, stressMaxArena, stressWorklist, stressCollectEvery = "16KB", "1GB", 16, 0

	output, err := captureOutput(t, runStress)
	if err != nil {
		t.Fatalf("runStress() error = %v", err)
	}
	assertContains(t, output, []string{"Stress run (seed 3)", "Iterations:    1,000", "Collections:", "Verified:"})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "16KB", want: 16 << 10},
		{in: "4MB", want: 4 << 20},
		{in: "1GB", want: 1 << 30},
		{in: "lots", wantErr: true},
		{in: "0KB", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize("--arena-size", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunStress_BadArenaSize(t *testing.T) {
	resetFlags()
	defer resetFlags()
	stressArenaSize, stressMaxArena = "huge", "1GB"
	if _, err := captureOutput(t, runStress); err == nil {
		t.Error("expected error for --arena-size huge")
	}
}

func TestRunStress_MemcheckReportsPages(t *testing.T) {
	resetFlags()
	defer resetFlags()
	jsonOut = true
	stressIterations, stressLive, stressSeed = 2000, 8, 5
	stressArenaSize, stressMaxArena, stressWorklist, stressCollectEvery = "16KB", "1GB", 16, 0
	stressMemcheck = true
	defer func() { stressMemcheck = false }()

	output, err := captureOutput(t, runStress)
	if err != nil {
		t.Fatalf("runStress() error = %v\nOutput: %s", err, output)
	}
	var res stressResult
	if err := json.Unmarshal([]byte(output), &res); err != nil {
		t.Fatal(err)
	}
	if res.Pages <= 0 {
		t.Errorf("expected pages touched in a memcheck run, got %+v", res)
	}
}

func TestFormatBytes_ParsesBack(t *testing.T) {
	for _, n := range []int{512, 16 << 10, 4 << 20, 1 << 30} {
		s := formatBytes(int64(n))
		got, err := parseSize("--arena-size", s)
		if err != nil {
			t.Fatalf("parseSize(formatBytes(%d) = %q) error = %v", n, s, err)
		}
		if got != n {
			t.Errorf("parseSize(%q) = %d, want %d", s, got, n)
		}
	}
}
