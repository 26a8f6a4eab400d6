// Package engine multiplexes client connections onto per-session lanes.
//
// Each active session gets one resident lane goroutine that owns the
// materialized state and serializes every mutation against the journal.
// Reads (state, resync, history) never enter a lane: they are served from
// the lane's published snapshot and the journal. Deadlines for proposals,
// rounds, and reconnect grace windows are wall-clock timers re-armed after
// every applied event, so they survive process pauses.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/filter"
	"github.com/louisbranch/gathering.place/internal/hub/metrics"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

const (
	defaultSnapshotEvery    = 100
	defaultSnapshotKeep     = 3
	defaultSubscriberBuffer = 64
	defaultCommandBuffer    = 32
	resyncPageSize          = 200
	defaultHistoryLimit     = 100
	maxHistoryLimit         = 500
)

// Config tunes the engine. Zero values take the defaults.
type Config struct {
	// SnapshotEvery persists a snapshot after this many applied events.
	// Pause and end transitions snapshot immediately regardless.
	SnapshotEvery int
	// SnapshotKeep bounds the snapshots retained per session.
	SnapshotKeep int
	// KeepEvents, when positive, compacts the journal after each snapshot
	// down to this many most recent events. Zero keeps the journal whole.
	KeepEvents int
	// SubscriberBuffer sizes each subscription's delivery channel.
	SubscriberBuffer int
	// CommandBuffer sizes each lane's inbound queue.
	CommandBuffer int
	// Now overrides the clock.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.SnapshotEvery <= 0 {
		c.SnapshotEvery = defaultSnapshotEvery
	}
	if c.SnapshotKeep <= 0 {
		c.SnapshotKeep = defaultSnapshotKeep
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = defaultSubscriberBuffer
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = defaultCommandBuffer
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Result reports the outcome of one submitted command: the journal records
// appended for it, with sequence and hash assigned, or the domain
// rejections that declined it.
type Result struct {
	Events     []event.Event
	Rejections []command.Rejection
}

// Accepted reports whether the command appended at least one event.
func (r Result) Accepted() bool {
	return len(r.Events) > 0 && len(r.Rejections) == 0
}

// StateSnapshot is the published materialized state of a session at a
// journal watermark. StateJSON is the JSON encoding of projection.State.
type StateSnapshot struct {
	SessionID string
	Seq       uint64
	StateJSON []byte
}

// ResyncResult carries the journal slice a reconnecting client missed plus
// the authoritative current state. MissedEvents is empty when the client's
// gap predates the oldest retained event; the snapshot then stands alone.
type ResyncResult struct {
	MissedEvents []event.Event
	Snapshot     StateSnapshot
}

// HistoryQuery narrows a journal history read.
type HistoryQuery struct {
	SessionID string
	AfterSeq  uint64
	Limit     int
	// Filter is an optional AIP-160 expression over the journal fields
	// (type, actor_id, entity_type, seq, ts, ...).
	Filter string
}

// Engine owns the session lanes and the journal access around them.
type Engine struct {
	store      storage.Store
	registries Registries
	recorder   *metrics.Metrics
	cfg        Config
	now        func() time.Time

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

// New wires an engine over the journal store. The recorder may be nil.
func New(store storage.Store, registries Registries, recorder *metrics.Metrics, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if registries.Commands == nil || registries.Events == nil {
		return nil, errors.New("registries are required")
	}
	cfg = cfg.withDefaults()
	return &Engine{
		store:      store,
		registries: registries,
		recorder:   recorder,
		cfg:        cfg,
		now:        cfg.Now,
		lanes:      make(map[string]*lane),
	}, nil
}

// Submit routes one command through its session lane: validate, decide,
// append, fold, broadcast. It blocks until the lane replies or ctx ends.
// Envelope errors are returned; domain declines come back as rejections in
// the result and are never an error.
func (e *Engine) Submit(ctx context.Context, cmd command.Command) (Result, error) {
	validated, err := e.registries.Commands.ValidateForDecision(cmd)
	if err != nil {
		e.recorder.CommandHandled(metrics.OutcomeErrored)
		return Result{}, err
	}
	ln, err := e.laneFor(ctx, validated.SessionID, true)
	if err != nil {
		return Result{}, err
	}
	return ln.submit(ctx, validated)
}

// SubmitGenerated routes externally generated content (an AI provider's
// output) through the ordinary command path as a system change. Generation
// runs outside any lane, so provider latency never blocks a session.
func (e *Engine) SubmitGenerated(ctx context.Context, cmd command.Command) (Result, error) {
	cmd.ActorType = command.ActorTypeSystem
	cmd.ActorID = ""
	return e.Submit(ctx, cmd)
}

// SessionState returns the latest published state without entering the lane.
func (e *Engine) SessionState(ctx context.Context, sessionID string) (StateSnapshot, error) {
	ln, err := e.laneFor(ctx, sessionID, false)
	if err != nil {
		return StateSnapshot{}, err
	}
	if err := ln.waitReady(ctx); err != nil {
		return StateSnapshot{}, err
	}
	return ln.snapshot()
}

// Resync serves a reconnecting client: every event after lastSeen up to the
// published watermark, in order, plus the authoritative snapshot. When
// lastSeen predates the oldest retained event the slice is gone and the
// snapshot alone is returned.
func (e *Engine) Resync(ctx context.Context, sessionID string, lastSeen uint64) (ResyncResult, error) {
	ln, err := e.laneFor(ctx, sessionID, false)
	if err != nil {
		return ResyncResult{}, err
	}
	if err := ln.waitReady(ctx); err != nil {
		return ResyncResult{}, err
	}
	snap, err := ln.snapshot()
	if err != nil {
		return ResyncResult{}, err
	}
	if lastSeen >= snap.Seq {
		e.recorder.ResyncServed(metrics.ResyncDelta)
		return ResyncResult{Snapshot: snap}, nil
	}

	oldest, err := e.store.OldestSeq(ctx, snap.SessionID)
	if err != nil {
		return ResyncResult{}, err
	}
	if oldest == 0 || lastSeen+1 < oldest {
		e.recorder.ResyncServed(metrics.ResyncSnapshot)
		return ResyncResult{Snapshot: snap}, nil
	}

	missed := make([]event.Event, 0, resyncPageSize)
	after := lastSeen
paging:
	for after < snap.Seq {
		page, err := e.store.ListEvents(ctx, snap.SessionID, after, resyncPageSize)
		if err != nil {
			return ResyncResult{}, err
		}
		if len(page) == 0 {
			break
		}
		for _, evt := range page {
			if evt.Seq > snap.Seq {
				break paging
			}
			missed = append(missed, evt)
			after = evt.Seq
		}
	}
	e.recorder.ResyncServed(metrics.ResyncDelta)
	return ResyncResult{MissedEvents: missed, Snapshot: snap}, nil
}

// Subscribe attaches a delivery channel for the session's applied events.
// Subscribe before reading the state snapshot and skip events at or below
// its watermark to bootstrap without a gap.
func (e *Engine) Subscribe(ctx context.Context, sessionID string) (*Subscription, error) {
	ln, err := e.laneFor(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	if err := ln.waitReady(ctx); err != nil {
		return nil, err
	}
	return ln.subscribe(e.cfg.SubscriberBuffer)
}

// ListEvents serves one page of the session's event history. The optional
// filter is an AIP-160 expression translated to SQL against the journal;
// the memory backend rejects filtered reads.
func (e *Engine) ListEvents(ctx context.Context, query HistoryQuery) ([]event.Event, error) {
	sessionID := strings.TrimSpace(query.SessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	condition, err := filter.ParseEventFilter(query.Filter)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return e.store.SearchEvents(ctx, storage.EventQuery{
		SessionID:    sessionID,
		AfterSeq:     query.AfterSeq,
		Limit:        limit,
		FilterClause: condition.Clause,
		FilterParams: condition.Params,
	})
}

// Sessions lists every session id known to the journal.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.store.ListSessionIDs(ctx)
}

// laneFor returns the session's resident lane, starting one when needed.
// Read paths refuse to start a lane for a session with no journal.
func (e *Engine) laneFor(ctx context.Context, sessionID string, create bool) (*lane, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if ln, ok := e.lanes[sessionID]; ok {
		e.mu.Unlock()
		return ln, nil
	}
	e.mu.Unlock()

	if !create {
		latest, err := e.store.LatestSeq(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, ErrSessionUnknown
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if ln, ok := e.lanes[sessionID]; ok {
		return ln, nil
	}
	ln := newLane(sessionID, e)
	e.lanes[sessionID] = ln
	return ln, nil
}

// Close stops every session lane and waits for them to drain. The journal
// store is owned by the caller and closed separately.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	lanes := make([]*lane, 0, len(e.lanes))
	for _, ln := range e.lanes {
		lanes = append(lanes, ln)
	}
	e.mu.Unlock()

	for _, ln := range lanes {
		close(ln.stop)
	}
	for _, ln := range lanes {
		<-ln.done
	}
	return nil
}
