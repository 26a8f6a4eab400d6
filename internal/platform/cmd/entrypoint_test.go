package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"

	"github.com/louisbranch/gathering.place/internal/platform/otel"
)

type entrypointConfig struct {
	Addr   string `env:"GATHERING_PLACE_ENTRY_ADDR" envDefault:":8090"`
	Driver string `env:"GATHERING_PLACE_ENTRY_DRIVER" envDefault:"sqlite"`
}

func TestFlagsOverrideEnvDefaults(t *testing.T) {
	t.Setenv("GATHERING_PLACE_ENTRY_ADDR", "env:1234")

	var cfg entrypointConfig
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	fs := flag.NewFlagSet("hub", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "")
	if err := ParseArgs(fs, []string{"-addr", "flag:5678"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if cfg.Addr != "flag:5678" {
		t.Fatalf("addr = %q, want flag override", cfg.Addr)
	}
	if cfg.Driver != "sqlite" {
		t.Fatalf("driver = %q, want env default", cfg.Driver)
	}
}

func TestParseConfigFromArgsCombinesSources(t *testing.T) {
	t.Setenv("GATHERING_PLACE_ENTRY_DRIVER", "postgres")

	var cfg entrypointConfig
	fs := flag.NewFlagSet("hub", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-addr", ":7070"}); err != nil {
		t.Fatalf("parse config from args: %v", err)
	}

	if cfg.Addr != ":7070" {
		t.Fatalf("addr = %q, want flag value", cfg.Addr)
	}
	if cfg.Driver != "postgres" {
		t.Fatalf("driver = %q, want env override", cfg.Driver)
	}
}

func TestParseGuards(t *testing.T) {
	if err := ParseConfig[entrypointConfig](nil); err == nil {
		t.Fatal("expected nil config target error")
	}
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected nil flag parser error")
	}
}

func TestRunWithTelemetryExecutesRunLoop(t *testing.T) {
	t.Setenv(otel.EnvEndpoint, "")

	want := errors.New("run loop done")
	ran := false
	err := RunWithTelemetry(context.Background(), ServiceHub, func(context.Context) error {
		ran = true
		return want
	})
	if !ran {
		t.Fatal("run loop never executed")
	}
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want run loop error", err)
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceGrantKey, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}
