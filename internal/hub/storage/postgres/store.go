// Package postgres implements the hub persistence contracts on PostgreSQL.
// It mirrors the sqlite backend's schema so the AIP filter translation and
// the per-session sequence counters behave identically on either backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		session_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		event_hash TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',
		actor_type TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session_type ON events (session_id, event_type, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session_actor ON events (session_id, actor_id, seq)`,
	`CREATE TABLE IF NOT EXISTS event_seq (
		session_id TEXT PRIMARY KEY,
		next_seq BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT NOT NULL,
		event_seq BIGINT NOT NULL,
		state_json TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (session_id, event_seq)
	)`,
}

// Store provides PostgreSQL-backed persistence for the session journal and
// its snapshots.
type Store struct {
	pool     *pgxpool.Pool
	registry *event.Registry
}

// Open connects to the database, runs migrations, and returns a ready store.
func Open(ctx context.Context, databaseURL string, registry *event.Registry) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is required")
	}
	if registry == nil {
		return nil, errors.New("event registry is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigration(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return &Store{pool: pool, registry: registry}, nil
}

func runMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range migrationStatements {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if _, err := pool.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// rebind converts a clause written with ? placeholders into the $n form,
// numbering from start. Filter clauses arrive in ? form so both SQL
// backends can share the translator.
func rebind(clause string, start int) string {
	var builder strings.Builder
	n := start
	for _, r := range clause {
		if r == '?' {
			builder.WriteString("$" + strconv.Itoa(n))
			n++
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

var _ storage.Store = (*Store)(nil)
