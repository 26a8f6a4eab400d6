package command

import (
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// Shared rejection codes used by deciders regardless of domain.
const (
	// RejectionCodePayloadDecodeFailed indicates an undecodable command payload.
	RejectionCodePayloadDecodeFailed = "PAYLOAD_DECODE_FAILED"
	// RejectionCodeCommandTypeUnsupported indicates a command no decider handles.
	RejectionCodeCommandTypeUnsupported = "COMMAND_TYPE_UNSUPPORTED"
)

// Decision represents the pure outcome of handling a command.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    string
	Message string
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Validate reports whether the decision carries an outcome.
func (d Decision) Validate() error {
	if len(d.Events) == 0 && len(d.Rejections) == 0 {
		return errors.New("decision must carry events or rejections")
	}
	return nil
}
