package engine

import (
	"sync/atomic"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// Subscription delivers a session's applied events to one connection. The
// channel is buffered; when the consumer falls behind, events are dropped
// rather than blocking the session lane, and the consumer is expected to
// notice the sequence gap and resync.
type Subscription struct {
	lane    *lane
	events  chan event.Event
	dropped atomic.Uint64
	// removed is guarded by lane.mu and keeps Close idempotent against the
	// lane tearing all subscriptions down on shutdown.
	removed bool
}

// Events returns the delivery channel. It is closed when the subscription is
// closed or the lane shuts down.
func (s *Subscription) Events() <-chan event.Event {
	return s.events
}

// Dropped reports how many events were discarded because the consumer was
// not keeping up.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the lane and closes the delivery
// channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.lane.unsubscribe(s)
}
