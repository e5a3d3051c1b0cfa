package main

import (
	"testing"
)

func TestDemo(t *testing.T) {
	for _, memcheck := range []bool{false, true} {
		res, err := demo(memcheck)
		if err != nil {
			t.Fatalf("demo(%v) error = %v", memcheck, err)
		}
		if res.FromArena == res.ToArena {
			t.Errorf("expected a new arena")
		}
		if !res.HookCalled {
			t.Errorf("post-collect hook not called")
		}
		if len(res.Finalized) != 1 || res.Finalized[0] != "dead" {
			t.Errorf("finalized = %v, want [dead]", res.Finalized)
		}
		for _, o := range res.Objects {
			moved := o.After != "" && o.After != o.Before
			if (o.Name == "dead") == moved {
				t.Errorf("object %s: before=%s after=%s", o.Name, o.Before, o.After)
			}
		}
	}
}

func TestRunDemo_Output(t *testing.T) {
	tests := []struct {
		name        string
		json        bool
		wantContain []string
	}{
		{name: "text", wantContain: []string{"Collected arena", "(reclaimed)", "Finalized: [dead]", "hook called: true"}},
		{name: "json", json: true, wantContain: []string{`"hook_called": true`, `"name": "self"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			defer resetFlags()
			jsonOut = tt.json

			output, err := captureOutput(t, runDemo)
			if err != nil {
				t.Fatalf("runDemo() error = %v", err)
			}
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}
