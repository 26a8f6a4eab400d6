package projection

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
)

func tableState() State {
	state := NewState()
	state.Session.Exists = true
	state.Session.SessionID = "sess-1"
	state.Session.Capacity = 4
	state.Session.AllowSpectators = true
	state.Roster.Participants["gm-1"] = participant.Participant{ID: "gm-1", Role: participant.RoleGM}
	state.Roster.Participants["p-1"] = participant.Participant{ID: "p-1", Role: participant.RolePlayer}
	state.Roster.Participants["p-2"] = participant.Participant{ID: "p-2", Role: participant.RolePlayer}
	state.Roster.Participants["spec-1"] = participant.Participant{ID: "spec-1", Role: participant.RoleSpectator}
	return state
}

func TestDecide_StampsActorRoleFromRoster(t *testing.T) {
	state := tableState()
	create := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("document.create"),
		ActorType:   command.ActorTypeParticipant,
		PayloadJSON: []byte(`{"document_id":"doc-1","title":"Notes"}`),
	}

	create.ActorID = "spec-1"
	decision := Decide(state, create, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != "UNAUTHORIZED" {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, "UNAUTHORIZED")
	}

	create.ActorID = "p-1"
	decision = Decide(state, create, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeDocumentCreated {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeDocumentCreated)
	}
}

func TestDecide_MirrorsSessionFactsOntoRoster(t *testing.T) {
	join := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "user-1",
		PayloadJSON: []byte(`{"participant_id":"p-9","user_id":"user-1","display_name":"Ada","role":"player"}`),
	}

	decision := Decide(NewState(), join, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != "SESSION_NOT_FOUND" {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, "SESSION_NOT_FOUND")
	}

	decision = Decide(tableState(), join, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeParticipantJoined {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeParticipantJoined)
	}
}

func TestDecide_SeedsProposalEligibilityFromRoster(t *testing.T) {
	now := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	deadline := now.Add(10 * time.Minute)
	cmd := command.Command{
		SessionID: "sess-1",
		Type:      command.Type("proposal.create"),
		ActorType: command.ActorTypeParticipant,
		ActorID:   "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","topic":"Rest for the night?",` +
			`"options":["rest","press-on"],"mode":"majority",` +
			`"deadline_unix_ms":` + strconv.FormatInt(deadline.UnixMilli(), 10) + `}`),
	}

	decision := Decide(tableState(), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}

	var payload proposal.CreatePayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	want := []string{"gm-1", "p-1", "p-2"}
	if len(payload.Eligible) != len(want) {
		t.Fatalf("eligible length = %d, want %d", len(payload.Eligible), len(want))
	}
	for i, id := range want {
		if payload.Eligible[i] != id {
			t.Fatalf("eligible[%d] = %s, want %s", i, payload.Eligible[i], id)
		}
	}
}

func TestDecide_UnroutedFamily_ReturnsEmptyDecision(t *testing.T) {
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("wibble.frob"),
		ActorType:   command.ActorTypeSystem,
		PayloadJSON: []byte(`{}`),
	}

	decision := Decide(tableState(), cmd, nil)
	if len(decision.Events) != 0 || len(decision.Rejections) != 0 {
		t.Fatalf("expected empty decision, got %d events and %d rejections",
			len(decision.Events), len(decision.Rejections))
	}
}
