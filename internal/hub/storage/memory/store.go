// Package memory stores the session journal and snapshots in process. It
// backs tests and single-node development where durability is not needed.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

// Store keeps every session's retained events and snapshots in maps guarded
// by one mutex. Sequence counters live apart from the event slices so
// pruning never disturbs numbering.
type Store struct {
	mu        sync.Mutex
	registry  *event.Registry
	events    map[string][]event.Event
	nextSeq   map[string]uint64
	snapshots map[string][]storage.Snapshot
}

// NewStore creates an empty in-memory store validating appends against the
// given registry.
func NewStore(registry *event.Registry) *Store {
	return &Store{
		registry:  registry,
		events:    make(map[string][]event.Event),
		nextSeq:   make(map[string]uint64),
		snapshots: make(map[string][]storage.Snapshot),
	}
}

// AppendEvent validates the event, assigns the next sequence number and the
// content hash, and retains it.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil {
		return event.Event{}, errors.New("store is required")
	}
	if s.registry == nil {
		return event.Event{}, errors.New("event registry is required")
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

	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextSeq[evt.SessionID]
	if !ok {
		next = 1
	}
	evt.Seq = next
	s.nextSeq[evt.SessionID] = next + 1

	hash, err := storage.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash

	s.events[evt.SessionID] = append(s.events[evt.SessionID], evt)
	return evt, nil
}

// ListEvents returns up to limit events with seq greater than afterSeq in
// sequence order.
func (s *Store) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	return s.SearchEvents(ctx, storage.EventQuery{SessionID: sessionID, AfterSeq: afterSeq, Limit: limit})
}

// SearchEvents pages through retained events. Filter clauses are SQL text,
// so any non-empty clause reports storage.ErrFilterUnsupported here.
func (s *Store) SearchEvents(ctx context.Context, query storage.EventQuery) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("store is required")
	}
	if query.FilterClause != "" {
		return nil, storage.ErrFilterUnsupported
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []event.Event
	for _, evt := range s.events[query.SessionID] {
		if evt.Seq <= query.AfterSeq {
			continue
		}
		result = append(result, evt)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// LatestSeq reports the highest sequence number ever assigned for the
// session, which survives pruning.
func (s *Store) LatestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextSeq[sessionID]
	if !ok || next == 0 {
		return 0, nil
	}
	return next - 1, nil
}

// OldestSeq reports the lowest retained sequence number, or 0 when nothing
// is retained.
func (s *Store) OldestSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.events[sessionID]
	if len(retained) == 0 {
		return 0, nil
	}
	return retained[0].Seq, nil
}

// PruneEvents drops retained events with seq below belowSeq and returns how
// many were removed.
func (s *Store) PruneEvents(ctx context.Context, sessionID string, belowSeq uint64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.events[sessionID]
	cut := 0
	for cut < len(retained) && retained[cut].Seq < belowSeq {
		cut++
	}
	if cut == 0 {
		return 0, nil
	}
	s.events[sessionID] = append([]event.Event(nil), retained[cut:]...)
	return int64(cut), nil
}

// ListSessionIDs returns every session id that has ever appended an event,
// sorted ascending.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.nextSeq))
	for id := range s.nextSeq {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveSnapshot retains one snapshot per watermark, overwriting an existing
// entry at the same watermark.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("store is required")
	}
	if snapshot.SessionID == "" {
		return errors.New("session id is required")
	}
	if len(snapshot.StateJSON) == 0 {
		return errors.New("snapshot state is required")
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	snapshot.StateJSON = append([]byte(nil), snapshot.StateJSON...)

	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.snapshots[snapshot.SessionID]
	for i, existing := range retained {
		if existing.EventSeq == snapshot.EventSeq {
			retained[i] = snapshot
			return nil
		}
	}
	retained = append(retained, snapshot)
	sort.Slice(retained, func(i, j int) bool { return retained[i].EventSeq < retained[j].EventSeq })
	s.snapshots[snapshot.SessionID] = retained
	return nil
}

// LatestSnapshot returns the snapshot with the highest watermark, or
// storage.ErrNotFound when the session has none.
func (s *Store) LatestSnapshot(ctx context.Context, sessionID string) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.snapshots[sessionID]
	if len(retained) == 0 {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	latest := retained[len(retained)-1]
	latest.StateJSON = append([]byte(nil), latest.StateJSON...)
	return latest, nil
}

// PruneSnapshots keeps the newest keep snapshots and drops the rest.
func (s *Store) PruneSnapshots(ctx context.Context, sessionID string, keep int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.snapshots[sessionID]
	if len(retained) <= keep {
		return 0, nil
	}
	pruned := len(retained) - keep
	s.snapshots[sessionID] = append([]storage.Snapshot(nil), retained[pruned:]...)
	return int64(pruned), nil
}

// Close releases nothing; it exists to satisfy the store contract.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
