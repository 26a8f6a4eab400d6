package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventSourceRequired indicates a missing event source.
	ErrEventSourceRequired = errors.New("event source is required")
	// ErrSessionIDRequired indicates a missing session id.
	ErrSessionIDRequired = errors.New("session id is required")
)

// EventSource lists journal events for replay.
type EventSource interface {
	ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// Options configures replay behavior.
type Options struct {
	// AfterSeq skips events at or below this sequence. Pass the snapshot's
	// watermark to resume from a snapshot, zero to replay from the start.
	AfterSeq uint64
	// UntilSeq stops replay after this sequence when non-zero.
	UntilSeq uint64
	// PageSize bounds each ListEvents call.
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	State   State
	LastSeq uint64
	Applied int
}

// Replay applies journal events in order on top of state. The journal is
// dense per session, so any sequence gap is reported as corruption rather
// than skipped.
func Replay(ctx context.Context, source EventSource, sessionID string, state State, options Options) (Result, error) {
	if source == nil {
		return Result{}, ErrEventSourceRequired
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, ErrSessionIDRequired
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: options.AfterSeq}
	for {
		events, err := source.ListEvents(ctx, sessionID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			nextState, err := Apply(result.State, evt)
			if err != nil {
				return result, fmt.Errorf("apply event %d: %w", evt.Seq, err)
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
		}
	}
}
