package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

// SaveSnapshot persists one materialized snapshot. Writing the same
// watermark twice overwrites the earlier row.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.pool == nil {
		return errors.New("storage is not configured")
	}
	if snapshot.SessionID == "" {
		return errors.New("session id is required")
	}
	if len(snapshot.StateJSON) == 0 {
		return errors.New("snapshot state is required")
	}
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (session_id, event_seq, state_json, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, event_seq) DO UPDATE SET state_json = EXCLUDED.state_json, created_at = EXCLUDED.created_at`,
		snapshot.SessionID,
		int64(snapshot.EventSeq),
		string(snapshot.StateJSON),
		toMillis(createdAt),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the snapshot with the highest watermark for the
// session, or storage.ErrNotFound when none exists.
func (s *Store) LatestSnapshot(ctx context.Context, sessionID string) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if s == nil || s.pool == nil {
		return storage.Snapshot{}, errors.New("storage is not configured")
	}

	var (
		snapshot  storage.Snapshot
		eventSeq  int64
		stateJSON string
		createdAt int64
	)
	err := s.pool.QueryRow(ctx,
		"SELECT session_id, event_seq, state_json, created_at FROM snapshots WHERE session_id = $1 ORDER BY event_seq DESC LIMIT 1",
		sessionID,
	).Scan(&snapshot.SessionID, &eventSeq, &stateJSON, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	snapshot.EventSeq = uint64(eventSeq)
	snapshot.StateJSON = []byte(stateJSON)
	snapshot.CreatedAt = fromMillis(createdAt)
	return snapshot, nil
}

// PruneSnapshots keeps the newest keep snapshots for the session and deletes
// the rest, returning how many were removed.
func (s *Store) PruneSnapshots(ctx context.Context, sessionID string, keep int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE session_id = $1 AND event_seq NOT IN (
			SELECT event_seq FROM snapshots WHERE session_id = $1 ORDER BY event_seq DESC LIMIT $2
		)`,
		sessionID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
