package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

// SaveSnapshot persists one materialized snapshot. Writing the same
// watermark twice overwrites the earlier row.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if snapshot.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(snapshot.StateJSON) == 0 {
		return fmt.Errorf("snapshot state is required")
	}
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (session_id, event_seq, state_json, created_at) VALUES (?, ?, ?, ?)",
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
	if s == nil || s.sqlDB == nil {
		return storage.Snapshot{}, fmt.Errorf("storage is not configured")
	}

	var (
		snapshot  storage.Snapshot
		eventSeq  int64
		stateJSON string
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT session_id, event_seq, state_json, created_at FROM snapshots WHERE session_id = ? ORDER BY event_seq DESC LIMIT 1",
		sessionID,
	).Scan(&snapshot.SessionID, &eventSeq, &stateJSON, &createdAt)
	if err == sql.ErrNoRows {
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
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM snapshots WHERE session_id = ? AND event_seq NOT IN (
			SELECT event_seq FROM snapshots WHERE session_id = ? ORDER BY event_seq DESC LIMIT ?
		)`,
		sessionID, sessionID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned snapshots: %w", err)
	}
	return pruned, nil
}
