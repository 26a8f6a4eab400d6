package storage

import (
	"encoding/json"

	"github.com/louisbranch/gathering.place/internal/hub/domain/encoding"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// EventHash computes the content-addressed identity of an event: the
// canonical JSON of the envelope plus payload, hashed and truncated. Every
// backend assigns it on append so the same event carries the same hash
// regardless of which store wrote it.
func EventHash(evt event.Event) (string, error) {
	return encoding.ContentHash(map[string]any{
		"session_id":  evt.SessionID,
		"seq":         evt.Seq,
		"timestamp":   evt.Timestamp.UTC().UnixMilli(),
		"type":        string(evt.Type),
		"request_id":  evt.RequestID,
		"actor_type":  string(evt.ActorType),
		"actor_id":    evt.ActorID,
		"entity_type": evt.EntityType,
		"entity_id":   evt.EntityID,
		"payload":     json.RawMessage(evt.PayloadJSON),
	})
}
