package projection

import (
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
)

func sessionCreatedEvent(seq uint64) event.Event {
	return event.Event{
		SessionID:   "sess-1",
		Seq:         seq,
		Type:        event.TypeSessionCreated,
		ActorID:     "gm-1",
		Timestamp:   time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"session_id":"sess-1","name":"Friday Night","capacity":4,"allow_spectators":true}`),
	}
}

func participantJoinedEvent(seq uint64, participantID, role string) event.Event {
	return event.Event{
		SessionID: "sess-1",
		Seq:       seq,
		Type:      event.TypeParticipantJoined,
		ActorID:   participantID,
		Timestamp: time.Date(2026, 2, 14, 20, 0, 30, 0, time.UTC),
		PayloadJSON: []byte(`{"participant_id":"` + participantID +
			`","display_name":"` + participantID + `","role":"` + role + `"}`),
	}
}

func TestApply_RoutesEventToOwningSlice(t *testing.T) {
	state, err := Apply(NewState(), sessionCreatedEvent(1))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	state, err = Apply(state, participantJoinedEvent(2, "gm-1", "gm"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !state.Session.Exists {
		t.Fatalf("expected session slice to exist")
	}
	if state.Session.Name != "Friday Night" {
		t.Fatalf("session name = %s, want %s", state.Session.Name, "Friday Night")
	}
	if len(state.Roster.Participants) != 1 {
		t.Fatalf("roster size = %d, want %d", len(state.Roster.Participants), 1)
	}
	if len(state.Documents.Documents) != 0 {
		t.Fatalf("documents size = %d, want %d", len(state.Documents.Documents), 0)
	}
}

func TestApply_UnknownType_LeavesStateUntouched(t *testing.T) {
	base, err := Apply(NewState(), sessionCreatedEvent(1))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	evt := event.Event{
		SessionID:   "sess-1",
		Seq:         2,
		Type:        event.Type("audit.noted"),
		Timestamp:   time.Date(2026, 2, 14, 20, 1, 0, 0, time.UTC),
		PayloadJSON: []byte(`{}`),
	}

	next, err := Apply(base, evt)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Session.Name != base.Session.Name {
		t.Fatalf("session name changed: %s", next.Session.Name)
	}
}

func TestApply_FoldErrorPropagates(t *testing.T) {
	evt := event.Event{
		SessionID:   "sess-1",
		Seq:         1,
		Type:        event.TypeResourceTransactionDecided,
		ActorID:     "gm-1",
		Timestamp:   time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"transaction_id":"tx-9","resource_id":"gold","status":"approved","applied_delta":-10}`),
	}

	if _, err := Apply(NewState(), evt); err == nil {
		t.Fatalf("expected apply to fail")
	}
}

func TestHandledTypes_CoverEveryDomainFold(t *testing.T) {
	handled := make(map[event.Type]bool)
	for _, typ := range HandledTypes() {
		handled[typ] = true
	}

	domains := [][]event.Type{
		session.FoldHandledTypes(),
		participant.FoldHandledTypes(),
		document.FoldHandledTypes(),
		proposal.FoldHandledTypes(),
		round.FoldHandledTypes(),
		resource.FoldHandledTypes(),
	}
	for _, types := range domains {
		for _, typ := range types {
			if !handled[typ] {
				t.Fatalf("event type %s is not dispatched", typ)
			}
		}
	}
}
