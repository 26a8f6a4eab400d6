package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/louisbranch/gathering.place/internal/hub/announce"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	apperrors "github.com/louisbranch/gathering.place/internal/platform/errors"
)

// wsFrame is the envelope every websocket message uses in both directions.
type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

// wsError carries the machine code plus a message already localized for the
// connection. Details hold internal context such as the decider's reason.
type wsError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

type createPayload struct {
	Grant           string `json:"grant,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Name            string `json:"name"`
	Capacity        int    `json:"capacity"`
	AllowSpectators bool   `json:"allow_spectators"`
	Locale          string `json:"locale,omitempty"`
}

type createdPayload struct {
	SessionID  string `json:"session_id"`
	Seq        uint64 `json:"seq"`
	ServerTime string `json:"server_time"`
}

type joinPayload struct {
	SessionID         string `json:"session_id"`
	Grant             string `json:"grant,omitempty"`
	ParticipantID     string `json:"participant_id,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	DisplayName       string `json:"display_name,omitempty"`
	CharacterID       string `json:"character_id,omitempty"`
	Role              string `json:"role,omitempty"`
	SpectatorFallback bool   `json:"spectator_fallback,omitempty"`
	LastSeenSeq       uint64 `json:"last_seen_seq,omitempty"`
	Locale            string `json:"locale,omitempty"`
}

type joinedPayload struct {
	SessionID     string          `json:"session_id"`
	ParticipantID string          `json:"participant_id"`
	Role          string          `json:"role"`
	RequestedRole string          `json:"requested_role,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Seq           uint64          `json:"seq"`
	State         json.RawMessage `json:"state"`
	MissedEvents  []wireEvent     `json:"missed_events,omitempty"`
	ServerTime    string          `json:"server_time"`
}

type waitlistedPayload struct {
	SessionID       string `json:"session_id"`
	ParticipantID   string `json:"participant_id"`
	QueuePosition   int    `json:"queue_position"`
	EstimatedWaitMS int64  `json:"estimated_wait_ms"`
}

type leavePayload struct {
	Reason string `json:"reason,omitempty"`
}

type leftPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type statePayload struct {
	SessionID string          `json:"session_id"`
	Seq       uint64          `json:"seq"`
	State     json.RawMessage `json:"state"`
}

type resyncPayload struct {
	LastSeenSeq uint64 `json:"last_seen_seq"`
}

type resyncedPayload struct {
	SessionID    string          `json:"session_id"`
	Seq          uint64          `json:"seq"`
	State        json.RawMessage `json:"state"`
	MissedEvents []wireEvent     `json:"missed_events"`
}

type eventsPayload struct {
	AfterSeq uint64 `json:"after_seq,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

type eventsResultPayload struct {
	SessionID string      `json:"session_id"`
	Events    []wireEvent `json:"events"`
	Count     int         `json:"count"`
}

type generatePayload struct {
	Kind    string            `json:"kind"`
	Prompt  string            `json:"prompt"`
	Context map[string]string `json:"context,omitempty"`
}

type generatedPayload struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Seq       uint64 `json:"seq"`
	Content   string `json:"content"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status string `json:"status"`
	Seq    uint64 `json:"seq,omitempty"`
	Events int    `json:"events,omitempty"`
}

// announcePayload is a localized system line rendered for one connection.
type announcePayload struct {
	Label string `json:"label"`
	Body  string `json:"body"`
}

type gapPayload struct {
	Dropped uint64 `json:"dropped"`
}

// wireEvent is the JSON shape journal events take on the websocket.
type wireEvent struct {
	SessionID  string          `json:"session_id"`
	Seq        uint64          `json:"seq"`
	Hash       string          `json:"hash,omitempty"`
	TS         string          `json:"ts"`
	Type       string          `json:"type"`
	RequestID  string          `json:"request_id,omitempty"`
	ActorType  string          `json:"actor_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	EntityType string          `json:"entity_type,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// eventEnvelope wraps a broadcast event with the system line it carries for
// this connection's locale, when it carries one.
type eventEnvelope struct {
	Event        wireEvent        `json:"event"`
	Announcement *announcePayload `json:"announcement,omitempty"`
}

func wireEventFrom(evt event.Event) wireEvent {
	return wireEvent{
		SessionID:  evt.SessionID,
		Seq:        evt.Seq,
		Hash:       evt.Hash,
		TS:         evt.Timestamp.UTC().Format(time.RFC3339),
		Type:       string(evt.Type),
		RequestID:  evt.RequestID,
		ActorType:  string(evt.ActorType),
		ActorID:    evt.ActorID,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Payload:    json.RawMessage(evt.PayloadJSON),
	}
}

func wireEvents(events []event.Event) []wireEvent {
	out := make([]wireEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, wireEventFrom(evt))
	}
	return out
}

// wsPeer serializes frame writes so the read loop and the event pump never
// interleave bytes on the shared connection.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func writeWSError(peer *wsPeer, tag language.Tag, requestID string, code string, details map[string]string) error {
	return peer.writeFrame(wsFrame{
		Type:      "hub.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   announce.ErrorMessage(tag, code),
				Retryable: false,
				Details:   details,
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("hub: failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}

// errorCode maps an error from the engine or the grant verifier to a wire
// code plus the details worth surfacing alongside it.
func errorCode(err error) (string, map[string]string) {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		details := appErr.Metadata
		if details == nil {
			details = map[string]string{"reason": appErr.Message}
		}
		return string(appErr.Code), details
	case errors.Is(err, engine.ErrSessionUnknown):
		return "SESSION_NOT_FOUND", nil
	case errors.Is(err, engine.ErrLaneHalted):
		return "SESSION_HALTED", nil
	case errors.Is(err, engine.ErrEngineClosed):
		return "UNAVAILABLE", nil
	default:
		return "UNKNOWN", map[string]string{"reason": err.Error()}
	}
}
