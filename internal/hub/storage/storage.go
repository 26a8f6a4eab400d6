package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrFilterUnsupported indicates the backend cannot evaluate a filter clause.
	ErrFilterUnsupported = errors.New("filter requires a sql backend")
)

// Snapshot stores one materialized session state at a journal watermark.
type Snapshot struct {
	SessionID string
	// EventSeq is the last journal sequence folded into StateJSON.
	EventSeq  uint64
	StateJSON []byte
	CreatedAt time.Time
}

// EventQuery narrows a journal listing for event history reads.
type EventQuery struct {
	SessionID string
	AfterSeq  uint64
	Limit     int
	// FilterClause is an optional SQL condition over the journal columns,
	// produced by the filter package with ? placeholders. FilterParams are
	// its positional arguments.
	FilterClause string
	FilterParams []any
}

// EventStore persists and serves the per-session event journal.
//
// AppendEvent assigns the next dense sequence for the session and the
// content hash; the caller never supplies either. Events at or below a
// snapshot watermark may be pruned, which is why OldestSeq exists: a resync
// below it must fall back to a snapshot.
type EventStore interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error)
	SearchEvents(ctx context.Context, query EventQuery) ([]event.Event, error)
	LatestSeq(ctx context.Context, sessionID string) (uint64, error)
	OldestSeq(ctx context.Context, sessionID string) (uint64, error)
	PruneEvents(ctx context.Context, sessionID string, belowSeq uint64) (int64, error)
	ListSessionIDs(ctx context.Context) ([]string, error)
}

// SnapshotStore persists materialized session snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LatestSnapshot(ctx context.Context, sessionID string) (Snapshot, error)
	PruneSnapshots(ctx context.Context, sessionID string, keep int) (int64, error)
}

// Store bundles the journal facets one backend serves.
type Store interface {
	EventStore
	SnapshotStore
	Close() error
}
