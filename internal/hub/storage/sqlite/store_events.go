package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

const eventColumns = "session_id, seq, event_hash, timestamp, event_type, request_id, actor_type, actor_id, entity_type, entity_id, payload"

// AppendEvent atomically appends an event and returns it with sequence and
// hash set. The per-session counter row hands out dense sequences even after
// old events are pruned.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	validated, err := s.registry.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = validated

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO event_seq (session_id, next_seq) VALUES (?, 1) ON CONFLICT(session_id) DO NOTHING",
		evt.SessionID,
	); err != nil {
		return event.Event{}, fmt.Errorf("init event seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM event_seq WHERE session_id = ?", evt.SessionID,
	).Scan(&seq); err != nil {
		return event.Event{}, fmt.Errorf("get event seq: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE event_seq SET next_seq = next_seq + 1 WHERE session_id = ?", evt.SessionID,
	); err != nil {
		return event.Event{}, fmt.Errorf("increment event seq: %w", err)
	}
	evt.Seq = uint64(seq)

	hash, err := storage.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		evt.SessionID,
		int64(evt.Seq),
		evt.Hash,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.RequestID,
		string(evt.ActorType),
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		string(evt.PayloadJSON),
	); err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit tx: %w", err)
	}
	return evt, nil
}

// ListEvents returns up to limit events with seq greater than afterSeq in
// sequence order.
func (s *Store) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	return s.SearchEvents(ctx, storage.EventQuery{SessionID: sessionID, AfterSeq: afterSeq, Limit: limit})
}

// SearchEvents returns events matching the query in sequence order.
func (s *Store) SearchEvents(ctx context.Context, query storage.EventQuery) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	sqlQuery := "SELECT " + eventColumns + " FROM events WHERE session_id = ? AND seq > ?"
	args := []any{query.SessionID, int64(query.AfterSeq)}
	if query.FilterClause != "" {
		sqlQuery += " AND (" + query.FilterClause + ")"
		args = append(args, query.FilterParams...)
	}
	sqlQuery += " ORDER BY seq ASC LIMIT " + strconv.Itoa(limit)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var (
		evt       event.Event
		seq       int64
		timestamp int64
		eventType string
		actorType string
		payload   string
	)
	if err := rows.Scan(
		&evt.SessionID,
		&seq,
		&evt.Hash,
		&timestamp,
		&eventType,
		&evt.RequestID,
		&actorType,
		&evt.ActorID,
		&evt.EntityType,
		&evt.EntityID,
		&payload,
	); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.ActorType = event.ActorType(actorType)
	evt.PayloadJSON = []byte(payload)
	return evt, nil
}

// LatestSeq returns the highest sequence ever assigned for the session, or
// zero when no events were appended. Pruning does not move it.
func (s *Store) LatestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT next_seq FROM event_seq WHERE session_id = ?", sessionID,
	).Scan(&next)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query latest seq: %w", err)
	}
	return uint64(next - 1), nil
}

// OldestSeq returns the lowest retained sequence for the session, or zero
// when no events are retained. Resyncs below it must fall back to a snapshot.
func (s *Store) OldestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var oldest sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT MIN(seq) FROM events WHERE session_id = ?", sessionID,
	).Scan(&oldest)
	if err != nil {
		return 0, fmt.Errorf("query oldest seq: %w", err)
	}
	if !oldest.Valid {
		return 0, nil
	}
	return uint64(oldest.Int64), nil
}

// PruneEvents deletes events with seq strictly below belowSeq and returns
// how many were removed. The sequence counter is left untouched so appends
// stay dense.
func (s *Store) PruneEvents(ctx context.Context, sessionID string, belowSeq uint64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM events WHERE session_id = ? AND seq < ?", sessionID, int64(belowSeq),
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned events: %w", err)
	}
	return pruned, nil
}

// ListSessionIDs returns every session the journal has seen, sorted. The
// counter table survives pruning, so fully compacted sessions still appear.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT session_id FROM event_seq ORDER BY session_id ASC")
	if err != nil {
		return nil, fmt.Errorf("query session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session ids: %w", err)
	}
	return ids, nil
}
