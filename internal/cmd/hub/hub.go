// Package hub parses hub command flags and starts the session runtime.
package hub

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/louisbranch/gathering.place/internal/hub/ai"
	server "github.com/louisbranch/gathering.place/internal/hub/app"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	"github.com/louisbranch/gathering.place/internal/hub/grant"
	"github.com/louisbranch/gathering.place/internal/hub/metrics"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
	"github.com/louisbranch/gathering.place/internal/hub/storage/memory"
	"github.com/louisbranch/gathering.place/internal/hub/storage/postgres"
	"github.com/louisbranch/gathering.place/internal/hub/storage/sqlite"
	entrypoint "github.com/louisbranch/gathering.place/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/gathering.place/internal/platform/grpc"
)

// Storage driver names accepted by -storage-driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds hub command configuration.
type Config struct {
	HTTPAddr       string        `env:"GATHERING_PLACE_HUB_HTTP_ADDR"       envDefault:":8090"`
	HealthAddr     string        `env:"GATHERING_PLACE_HUB_HEALTH_ADDR"     envDefault:":8091"`
	StorageDriver  string        `env:"GATHERING_PLACE_HUB_STORAGE_DRIVER"  envDefault:"sqlite"`
	SQLitePath     string        `env:"GATHERING_PLACE_HUB_SQLITE_PATH"     envDefault:"hub.db"`
	DatabaseURL    string        `env:"GATHERING_PLACE_HUB_DATABASE_URL"`
	SnapshotEvery  int           `env:"GATHERING_PLACE_HUB_SNAPSHOT_EVERY"  envDefault:"100"`
	KeepEvents     int           `env:"GATHERING_PLACE_HUB_KEEP_EVENTS"     envDefault:"0"`
	ReconnectGrace time.Duration `env:"GATHERING_PLACE_HUB_RECONNECT_GRACE" envDefault:"2m"`
	GenerateURL    string        `env:"GATHERING_PLACE_AI_GENERATE_URL"`
	GenerateToken  string        `env:"GATHERING_PLACE_AI_GENERATE_TOKEN"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "hub HTTP/WebSocket listen address")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.StorageDriver, "storage-driver", cfg.StorageDriver, "journal backend: sqlite, postgres or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "sqlite journal file path")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection URL")
	fs.IntVar(&cfg.SnapshotEvery, "snapshot-every", cfg.SnapshotEvery, "events between snapshots")
	fs.IntVar(&cfg.KeepEvents, "keep-events", cfg.KeepEvents, "journal entries kept after compaction (0 keeps all)")
	fs.DurationVar(&cfg.ReconnectGrace, "reconnect-grace", cfg.ReconnectGrace, "seat hold window after a transport drop")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the hub realtime service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHub, func(context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	registries, err := engine.BuildRegistries()
	if err != nil {
		return fmt.Errorf("build registries: %w", err)
	}

	store, err := openStore(ctx, cfg, registries)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("hub: close store: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)

	eng, err := engine.New(store, registries, recorder, engine.Config{
		SnapshotEvery: cfg.SnapshotEvery,
		KeepEvents:    cfg.KeepEvents,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Printf("hub: close engine: %v", err)
		}
	}()

	grants, err := grant.LoadConfigFromEnv(nil)
	if err != nil {
		return fmt.Errorf("load grant config: %w", err)
	}
	if grants.Enforced() {
		log.Printf("hub: join grants enforced (issuer %s)", grants.Issuer)
	} else {
		log.Printf("hub: join grants not enforced; set %s to require them", grant.EnvGrantPublicKey)
	}

	var provider ai.Provider
	if url := strings.TrimSpace(cfg.GenerateURL); url != "" {
		provider = ai.NewHTTPProvider(ai.HTTPConfig{URL: url, Token: cfg.GenerateToken})
		log.Printf("hub: content generation enabled at %s", url)
	}

	if addr := strings.TrimSpace(cfg.HealthAddr); addr != "" {
		healthServer, err := platformgrpc.ServeHealth(addr, log.Printf)
		if err != nil {
			return err
		}
		defer healthServer.Stop()
	}

	return server.Run(ctx, server.Config{
		HTTPAddr:       cfg.HTTPAddr,
		Engine:         eng,
		Grants:         grants,
		Provider:       provider,
		Recorder:       recorder,
		Gatherer:       registry,
		ReconnectGrace: cfg.ReconnectGrace,
	})
}

// openStore builds the journal backend named by the storage driver.
func openStore(ctx context.Context, cfg Config, registries engine.Registries) (storage.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	switch driver {
	case DriverSQLite, "":
		store, err := sqlite.Open(cfg.SQLitePath, registries.Events)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return store, nil
	case DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, registries.Events)
		if err != nil {
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}
		return store, nil
	case DriverMemory:
		log.Printf("hub: memory journal selected; sessions do not survive restarts")
		return memory.NewStore(registries.Events), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

