// Package main provides a CLI for seeding a local hub journal with demo
// sessions, driven through the real command engine so the journal replays
// like a live one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/gathering.place/internal/tools/seed"
)

func main() {
	cfg := seed.DefaultConfig()
	var list bool

	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "sqlite journal path")
	flag.StringVar(&cfg.Driver, "driver", cfg.Driver, "journal driver (sqlite, memory)")
	flag.StringVar(&cfg.Scenario, "scenario", "", "run specific scenario (default: all)")
	flag.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducibility (0 = random)")
	flag.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	flag.BoolVar(&list, "list", false, "list available scenarios")
	flag.Parse()

	if list {
		fmt.Println("Available scenarios:")
		for _, scenario := range seed.Scenarios() {
			fmt.Printf("  %-10s %s\n", scenario.Name, scenario.Info)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed.Run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
