package session

import (
	"strconv"
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

func TestFoldSessionCreated_SetsFacts(t *testing.T) {
	evt := event.Event{
		SessionID:   "sess-1",
		Type:        event.TypeSessionCreated,
		Timestamp:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"session_id":"sess-1","name":"Friday Night","capacity":4,"allow_spectators":true}`),
	}

	state, err := Fold(State{}, evt)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if !state.Exists {
		t.Fatalf("expected state to exist")
	}
	if state.Status != StatusPlanned {
		t.Fatalf("status = %s, want %s", state.Status, StatusPlanned)
	}
	if state.Capacity != 4 {
		t.Fatalf("capacity = %d, want %d", state.Capacity, 4)
	}
	if !state.AllowSpectators {
		t.Fatalf("allow spectators = false, want true")
	}
}

func TestFoldSessionStatusChanged_UpdatesStatus(t *testing.T) {
	state := State{Exists: true, Status: StatusPlanned}
	evt := event.Event{
		SessionID:   "sess-1",
		Type:        event.TypeSessionStatusChanged,
		Timestamp:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"status":"active"}`),
	}

	state, err := Fold(state, evt)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if state.Status != StatusActive {
		t.Fatalf("status = %s, want %s", state.Status, StatusActive)
	}
}

func TestFoldSessionStateChanged_AppliesWorldChanges(t *testing.T) {
	state := State{Exists: true, Status: StatusActive}
	changes := []string{
		`{"kind":"location_set","value":"Ruined Keep"}`,
		`{"kind":"weather_set","value":"storm"}`,
		`{"kind":"npc_added","value":"innkeeper"}`,
		`{"kind":"npc_added","value":"dragon"}`,
		`{"kind":"npc_removed","value":"innkeeper"}`,
		`{"kind":"quest_flag_set","key":"gate_opened","value":"true"}`,
		`{"kind":"party_position_set","value":"east corridor"}`,
	}
	for _, change := range changes {
		var err error
		state, err = Fold(state, event.Event{
			SessionID:   "sess-1",
			Type:        event.TypeSessionStateChanged,
			Timestamp:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
			PayloadJSON: []byte(change),
		})
		if err != nil {
			t.Fatalf("fold: %v", err)
		}
	}

	if state.World.Location != "Ruined Keep" {
		t.Fatalf("location = %s, want %s", state.World.Location, "Ruined Keep")
	}
	if state.World.Weather != "storm" {
		t.Fatalf("weather = %s, want %s", state.World.Weather, "storm")
	}
	if len(state.World.NPCs) != 1 || state.World.NPCs[0] != "dragon" {
		t.Fatalf("npcs = %v, want [dragon]", state.World.NPCs)
	}
	if state.World.QuestFlags["gate_opened"] != "true" {
		t.Fatalf("quest flag = %s, want %s", state.World.QuestFlags["gate_opened"], "true")
	}
	if state.World.PartyPosition != "east corridor" {
		t.Fatalf("party position = %s, want %s", state.World.PartyPosition, "east corridor")
	}
}

func TestFoldSessionStateChanged_DoesNotAliasPriorState(t *testing.T) {
	base := State{Exists: true, Status: StatusActive, World: World{NPCs: []string{"innkeeper"}}}
	evt := event.Event{
		SessionID:   "sess-1",
		Type:        event.TypeSessionStateChanged,
		Timestamp:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		PayloadJSON: []byte(`{"kind":"npc_added","value":"dragon"}`),
	}

	next, err := Fold(base, evt)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if len(base.World.NPCs) != 1 {
		t.Fatalf("base npcs length = %d, want %d", len(base.World.NPCs), 1)
	}
	if len(next.World.NPCs) != 2 {
		t.Fatalf("next npcs length = %d, want %d", len(next.World.NPCs), 2)
	}
}

func TestFoldSessionMessagePosted_BoundsRecentHistory(t *testing.T) {
	state := State{Exists: true, Status: StatusActive}
	for i := 0; i < maxRecentMessages+5; i++ {
		id := "msg-" + strconv.Itoa(i)
		var err error
		state, err = Fold(state, event.Event{
			SessionID:   "sess-1",
			Type:        event.TypeSessionMessagePosted,
			ActorID:     "p-1",
			Timestamp:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
			PayloadJSON: []byte(`{"message_id":"` + id + `","body":"line"}`),
		})
		if err != nil {
			t.Fatalf("fold: %v", err)
		}
	}

	if len(state.Messages) != maxRecentMessages {
		t.Fatalf("messages length = %d, want %d", len(state.Messages), maxRecentMessages)
	}
	if state.Messages[0].ID != "msg-5" {
		t.Fatalf("oldest retained message = %s, want %s", state.Messages[0].ID, "msg-5")
	}
}
