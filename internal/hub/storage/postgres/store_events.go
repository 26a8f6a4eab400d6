package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

const eventColumns = "session_id, seq, event_hash, timestamp, event_type, request_id, actor_type, actor_id, entity_type, entity_id, payload"

// AppendEvent validates the event, assigns the next sequence number inside a
// transaction, and inserts it. The counter row is locked so concurrent
// appends for one session serialize.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.pool == nil {
		return event.Event{}, errors.New("storage is not configured")
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"INSERT INTO event_seq (session_id, next_seq) VALUES ($1, 1) ON CONFLICT (session_id) DO NOTHING",
		evt.SessionID,
	); err != nil {
		return event.Event{}, fmt.Errorf("init event seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRow(ctx,
		"SELECT next_seq FROM event_seq WHERE session_id = $1 FOR UPDATE", evt.SessionID,
	).Scan(&seq); err != nil {
		return event.Event{}, fmt.Errorf("get event seq: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE event_seq SET next_seq = next_seq + 1 WHERE session_id = $1", evt.SessionID,
	); err != nil {
		return event.Event{}, fmt.Errorf("increment event seq: %w", err)
	}
	evt.Seq = uint64(seq)

	hash, err := storage.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash

	if _, err := tx.Exec(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
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

	if err := tx.Commit(ctx); err != nil {
		return event.Event{}, fmt.Errorf("commit tx: %w", err)
	}
	return evt, nil
}

// ListEvents returns up to limit events with seq greater than afterSeq in
// sequence order.
func (s *Store) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	return s.SearchEvents(ctx, storage.EventQuery{SessionID: sessionID, AfterSeq: afterSeq, Limit: limit})
}

// SearchEvents pages through the journal, optionally narrowed by a
// translated filter clause.
func (s *Store) SearchEvents(ctx context.Context, query storage.EventQuery) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, errors.New("storage is not configured")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	sqlQuery := "SELECT " + eventColumns + " FROM events WHERE session_id = $1 AND seq > $2"
	args := []any{query.SessionID, int64(query.AfterSeq)}
	if query.FilterClause != "" {
		sqlQuery += " AND (" + rebind(query.FilterClause, 3) + ")"
		args = append(args, query.FilterParams...)
	}
	sqlQuery += fmt.Sprintf(" ORDER BY seq ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
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

func scanEvent(rows pgx.Rows) (event.Event, error) {
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

// LatestSeq reports the highest sequence number ever assigned for the
// session, which survives pruning.
func (s *Store) LatestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next int64
	err := s.pool.QueryRow(ctx,
		"SELECT next_seq FROM event_seq WHERE session_id = $1", sessionID,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query latest seq: %w", err)
	}
	if next <= 1 {
		return 0, nil
	}
	return uint64(next - 1), nil
}

// OldestSeq reports the lowest retained sequence number, or 0 when nothing
// is retained.
func (s *Store) OldestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var oldest int64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(MIN(seq), 0) FROM events WHERE session_id = $1", sessionID,
	).Scan(&oldest)
	if err != nil {
		return 0, fmt.Errorf("query oldest seq: %w", err)
	}
	return uint64(oldest), nil
}

// PruneEvents drops retained events with seq below belowSeq and returns how
// many rows were removed.
func (s *Store) PruneEvents(ctx context.Context, sessionID string, belowSeq uint64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM events WHERE session_id = $1 AND seq < $2", sessionID, int64(belowSeq),
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSessionIDs returns every session id that has ever appended an event,
// sorted ascending.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, "SELECT session_id FROM event_seq ORDER BY session_id")
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
