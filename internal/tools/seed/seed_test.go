package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunSeedsAllScenarios(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Driver: "memory", Seed: 42}

	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, scenario := range Scenarios() {
		if !strings.Contains(out.String(), "("+scenario.Name+")") {
			t.Fatalf("output missing scenario %s:\n%s", scenario.Name, out.String())
		}
	}
}

func TestRunSingleScenario(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Driver: "memory", Seed: 7, Scenario: "ledger", Verbose: true}

	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "(ledger)") {
		t.Fatalf("output missing ledger scenario:\n%s", out.String())
	}
	if strings.Contains(out.String(), "(council)") {
		t.Fatalf("unexpected council scenario in single-scenario run:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "resource.decide") {
		t.Fatalf("verbose output missing command trace:\n%s", out.String())
	}
}

func TestRunUnknownScenario(t *testing.T) {
	err := Run(context.Background(), Config{Driver: "memory", Scenario: "heist"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown scenario")
	}
	if !strings.Contains(err.Error(), "unknown scenario") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunUnknownDriver(t *testing.T) {
	err := Run(context.Background(), Config{Driver: "oracle"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunDeterministicForSeed(t *testing.T) {
	var first, second bytes.Buffer
	cfg := Config{Driver: "memory", Seed: 99, Verbose: true}

	if err := Run(context.Background(), cfg, &first); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Run(context.Background(), cfg, &second); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.String() != second.String() {
		t.Fatalf("runs diverged for the same seed:\nfirst:\n%s\nsecond:\n%s", first.String(), second.String())
	}
}
