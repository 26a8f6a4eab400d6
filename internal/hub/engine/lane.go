package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
	"github.com/louisbranch/gathering.place/internal/hub/metrics"
	"github.com/louisbranch/gathering.place/internal/hub/projection"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
)

// laneRequest carries one validated command into the lane with its reply slot.
type laneRequest struct {
	ctx   context.Context
	cmd   command.Command
	reply chan laneReply
}

type laneReply struct {
	result Result
	err    error
}

// lane is the single writer for one session. Its run goroutine owns the
// materialized state and serializes every mutation: decide, append, fold,
// broadcast. Reads are served from the published snapshot without queueing.
type lane struct {
	sessionID  string
	store      storage.Store
	registries Registries
	cfg        Config
	recorder   *metrics.Metrics
	now        func() time.Time

	requests chan laneRequest
	// stop is closed by the engine on shutdown; done is closed when the run
	// goroutine has drained and exited, whatever the reason.
	stop  chan struct{}
	done  chan struct{}
	ready chan struct{}

	// The run goroutine owns these.
	state     projection.State
	lastSeq   uint64
	sinceSnap int

	mu        sync.Mutex
	published StateSnapshot
	subs      map[*Subscription]struct{}
	subsDown  bool
	cause     error
}

func newLane(sessionID string, e *Engine) *lane {
	l := &lane{
		sessionID:  sessionID,
		store:      e.store,
		registries: e.registries,
		cfg:        e.cfg,
		recorder:   e.recorder,
		now:        e.now,
		requests:   make(chan laneRequest, e.cfg.CommandBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		ready:      make(chan struct{}),
		subs:       make(map[*Subscription]struct{}),
	}
	go l.run()
	return l
}

func (l *lane) run() {
	l.recorder.LaneStarted()
	defer close(l.done)
	defer l.teardown()
	defer l.recorder.LaneStopped()

	if err := l.load(context.Background()); err != nil {
		l.fail(fmt.Errorf("load session: %w", err))
		close(l.ready)
		return
	}
	close(l.ready)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	l.armDeadline(timer, false)

	for {
		select {
		case <-l.stop:
			return
		case req := <-l.requests:
			l.handle(req)
			if l.halted() {
				return
			}
			l.armDeadline(timer, false)
		case <-timer.C:
			l.expireDue()
			if l.halted() {
				return
			}
			l.armDeadline(timer, true)
		}
	}
}

// load restores the materialized state from the latest snapshot plus the
// journal tail. An unreadable snapshot falls back to a full replay; a
// sequence gap in that replay means the journal was compacted past the
// point of recovery and the lane refuses to serve.
func (l *lane) load(ctx context.Context) error {
	state := projection.NewState()
	var afterSeq uint64

	snap, err := l.store.LatestSnapshot(ctx, l.sessionID)
	switch {
	case err == nil:
		decoded, decodeErr := projection.DecodeSnapshot(snap.StateJSON)
		if decodeErr != nil {
			log.Printf("hub: session %s snapshot at seq %d unreadable, replaying journal: %v", l.sessionID, snap.EventSeq, decodeErr)
		} else {
			state = decoded
			afterSeq = snap.EventSeq
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return err
	}

	result, err := projection.Replay(ctx, l.store, l.sessionID, state, projection.Options{AfterSeq: afterSeq})
	if err != nil {
		return err
	}
	l.state = result.State
	l.lastSeq = result.LastSeq
	l.publish()
	return nil
}

func (l *lane) submit(ctx context.Context, cmd command.Command) (Result, error) {
	req := laneRequest{ctx: ctx, cmd: cmd, reply: make(chan laneReply, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return Result{}, l.exitErr()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-l.done:
		// Prefer a reply that raced with shutdown.
		select {
		case reply := <-req.reply:
			return reply.result, reply.err
		default:
		}
		return Result{}, l.exitErr()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (l *lane) handle(req laneRequest) {
	started := l.now()
	result, err := l.apply(req.ctx, req.cmd)
	l.recorder.ObserveCommandLatency(l.now().Sub(started))
	switch {
	case err != nil:
		l.recorder.CommandHandled(metrics.OutcomeErrored)
	case len(result.Rejections) > 0:
		l.recorder.CommandHandled(metrics.OutcomeRejected)
	default:
		l.recorder.CommandHandled(metrics.OutcomeAccepted)
	}
	req.reply <- laneReply{result: result, err: err}
}

// apply decides the command, appends the accepted events, and folds them
// into the materialized state. Events appended before a mid-batch failure
// are already journal truth and are folded regardless.
func (l *lane) apply(ctx context.Context, cmd command.Command) (Result, error) {
	decision := projection.Decide(l.state, cmd, l.now)
	if len(decision.Rejections) > 0 {
		return Result{Rejections: decision.Rejections}, nil
	}
	if len(decision.Events) == 0 {
		return Result{Rejections: []command.Rejection{{
			Code:    command.RejectionCodeCommandTypeUnsupported,
			Message: fmt.Sprintf("no decider handles %s", cmd.Type),
		}}}, nil
	}

	appended := make([]event.Event, 0, len(decision.Events))
	var appendErr error
	for _, evt := range decision.Events {
		stored, err := l.store.AppendEvent(ctx, evt)
		if err != nil {
			appendErr = fmt.Errorf("append %s: %w", evt.Type, err)
			break
		}
		appended = append(appended, stored)
	}
	if foldErr := l.fold(appended); foldErr != nil {
		l.fail(foldErr)
		return Result{Events: appended}, fmt.Errorf("%w: %v", ErrLaneHalted, foldErr)
	}
	return Result{Events: appended}, appendErr
}

// fold applies appended events, broadcasts each one, republishes the state,
// and persists a snapshot when the cadence or a pause/end transition calls
// for one. A fold error means the journal contradicts the domain invariants
// and the lane must halt.
func (l *lane) fold(events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	snapshotNow := false
	for _, evt := range events {
		next, err := projection.Apply(l.state, evt)
		if err != nil {
			return fmt.Errorf("apply event %d: %w", evt.Seq, err)
		}
		l.state = next
		l.lastSeq = evt.Seq
		l.sinceSnap++
		if evt.Type == event.TypeSessionStatusChanged {
			switch l.state.Session.Status {
			case session.StatusPaused, session.StatusEnded:
				snapshotNow = true
			}
		}
		l.broadcast(evt)
	}
	l.publish()
	l.recorder.EventsAppended(len(events))
	if snapshotNow || l.sinceSnap >= l.cfg.SnapshotEvery {
		l.persistSnapshot(context.Background())
	}
	return nil
}

// persistSnapshot writes the current state at the current watermark and
// trims old snapshots, optionally compacting the journal tail. Failures are
// logged and retried at the next cadence point; the journal remains the
// source of truth either way.
func (l *lane) persistSnapshot(ctx context.Context) {
	raw, err := projection.EncodeSnapshot(l.state)
	if err != nil {
		log.Printf("hub: session %s encode snapshot: %v", l.sessionID, err)
		return
	}
	snap := storage.Snapshot{
		SessionID: l.sessionID,
		EventSeq:  l.lastSeq,
		StateJSON: raw,
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		log.Printf("hub: session %s save snapshot at seq %d: %v", l.sessionID, l.lastSeq, err)
		return
	}
	l.sinceSnap = 0
	l.recorder.SnapshotSaved()
	if _, err := l.store.PruneSnapshots(ctx, l.sessionID, l.cfg.SnapshotKeep); err != nil {
		log.Printf("hub: session %s prune snapshots: %v", l.sessionID, err)
	}
	if l.cfg.KeepEvents > 0 && l.lastSeq > uint64(l.cfg.KeepEvents) {
		belowSeq := l.lastSeq - uint64(l.cfg.KeepEvents) + 1
		if _, err := l.store.PruneEvents(ctx, l.sessionID, belowSeq); err != nil {
			log.Printf("hub: session %s prune events below %d: %v", l.sessionID, belowSeq, err)
		}
	}
}

// expireDue runs the system expire commands for every deadline that has
// passed. Rejections here are expected races with client commands that beat
// the timer and are dropped silently.
func (l *lane) expireDue() {
	ctx := context.Background()
	for _, cmd := range dueCommands(l.sessionID, l.state, l.now().UTC()) {
		validated, err := l.registries.Commands.ValidateForDecision(cmd)
		if err != nil {
			log.Printf("hub: session %s expire %s: %v", l.sessionID, cmd.Type, err)
			continue
		}
		if _, err := l.apply(ctx, validated); err != nil {
			log.Printf("hub: session %s expire %s: %v", l.sessionID, validated.Type, err)
		}
		if l.halted() {
			return
		}
	}
}

// armDeadline re-arms the lane timer to the earliest pending deadline. fired
// reports whether the timer channel was just drained by the caller's select.
func (l *lane) armDeadline(timer *time.Timer, fired bool) {
	if !fired && !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	next, ok := nextDeadline(l.state)
	if !ok {
		return
	}
	wait := next.Sub(l.now().UTC())
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
}

// publish refreshes the read-side snapshot served without entering the lane.
func (l *lane) publish() {
	raw, err := json.Marshal(l.state)
	if err != nil {
		log.Printf("hub: session %s publish state: %v", l.sessionID, err)
		return
	}
	l.mu.Lock()
	l.published = StateSnapshot{SessionID: l.sessionID, Seq: l.lastSeq, StateJSON: raw}
	l.mu.Unlock()
}

func (l *lane) snapshot() (StateSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cause != nil {
		return StateSnapshot{}, fmt.Errorf("%w: %v", ErrLaneHalted, l.cause)
	}
	snap := l.published
	snap.StateJSON = append([]byte(nil), snap.StateJSON...)
	return snap, nil
}

func (l *lane) broadcast(evt event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sub := range l.subs {
		select {
		case sub.events <- evt:
		default:
			sub.dropped.Add(1)
			l.recorder.BroadcastDropped()
		}
	}
}

func (l *lane) subscribe(buffer int) (*Subscription, error) {
	sub := &Subscription{lane: l, events: make(chan event.Event, buffer)}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cause != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaneHalted, l.cause)
	}
	if l.subsDown {
		return nil, ErrEngineClosed
	}
	l.subs[sub] = struct{}{}
	return sub, nil
}

func (l *lane) unsubscribe(sub *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sub.removed {
		return
	}
	sub.removed = true
	delete(l.subs, sub)
	close(sub.events)
}

func (l *lane) waitReady(ctx context.Context) error {
	select {
	case <-l.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardown answers queued requests with the exit error and closes every
// subscription so connection writers unblock.
func (l *lane) teardown() {
	for {
		select {
		case req := <-l.requests:
			req.reply <- laneReply{err: l.exitErr()}
		default:
			l.closeSubs()
			return
		}
	}
}

func (l *lane) closeSubs() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subsDown = true
	for sub := range l.subs {
		sub.removed = true
		close(sub.events)
	}
	l.subs = nil
}

// fail records the halt cause. The first cause wins; later failures during
// teardown keep the original diagnosis.
func (l *lane) fail(err error) {
	l.mu.Lock()
	if l.cause == nil {
		l.cause = err
	}
	l.mu.Unlock()
	l.recorder.LaneHalted()
	log.Printf("hub: session %s lane halted: %v", l.sessionID, err)
}

func (l *lane) halted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cause != nil
}

func (l *lane) exitErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cause != nil {
		return fmt.Errorf("%w: %v", ErrLaneHalted, l.cause)
	}
	return ErrEngineClosed
}
