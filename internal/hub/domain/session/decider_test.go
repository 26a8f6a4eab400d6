package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

func activeState(role participant.Role) State {
	return State{
		Exists:          true,
		SessionID:       "sess-1",
		Name:            "Friday Night",
		Status:          StatusActive,
		Capacity:        4,
		AllowSpectators: true,
		ActorRole:       role,
	}
}

func TestDecideSessionCreate_EmitsSessionCreatedEvent(t *testing.T) {
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"session_id":"sess-1","name":"  Friday Night  ","capacity":4,"allow_spectators":true}`),
	}

	decision := Decide(State{}, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}

	evt := decision.Events[0]
	if evt.Type != event.TypeSessionCreated {
		t.Fatalf("event type = %s, want %s", evt.Type, event.TypeSessionCreated)
	}
	if evt.EntityType != "session" {
		t.Fatalf("event entity type = %s, want %s", evt.EntityType, "session")
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("event timestamp = %s, want %s", evt.Timestamp, now)
	}

	var payload CreatePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Name != "Friday Night" {
		t.Fatalf("payload name = %s, want %s", payload.Name, "Friday Night")
	}
	if payload.Capacity != 4 {
		t.Fatalf("payload capacity = %d, want %d", payload.Capacity, 4)
	}
	if !payload.AllowSpectators {
		t.Fatalf("payload allow spectators = false, want true")
	}
}

func TestDecideSessionCreate_WhenAlreadyCreated_ReturnsRejection(t *testing.T) {
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"name":"Again","capacity":4}`),
	}

	decision := Decide(State{Exists: true}, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionAlreadyCreated {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionAlreadyCreated)
	}
}

func TestDecideSessionCreate_InvalidCapacity_ReturnsRejection(t *testing.T) {
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"name":"Friday Night","capacity":0}`),
	}

	decision := Decide(State{}, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionInvalidCapacity {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionInvalidCapacity)
	}
}

func TestDecideSessionSetStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		to      string
		allowed bool
	}{
		{name: "planned to active", from: StatusPlanned, to: "active", allowed: true},
		{name: "planned to ended", from: StatusPlanned, to: "ended", allowed: true},
		{name: "planned to paused", from: StatusPlanned, to: "paused", allowed: false},
		{name: "active to paused", from: StatusActive, to: "paused", allowed: true},
		{name: "active to ended", from: StatusActive, to: "ended", allowed: true},
		{name: "paused to active", from: StatusPaused, to: "active", allowed: true},
		{name: "paused to ended", from: StatusPaused, to: "ended", allowed: true},
		{name: "active to planned", from: StatusActive, to: "planned", allowed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := activeState(participant.RoleGM)
			state.Status = tc.from
			cmd := command.Command{
				SessionID:   "sess-1",
				Type:        command.Type("session.set_status"),
				ActorType:   command.ActorTypeGM,
				ActorID:     "gm-1",
				PayloadJSON: []byte(`{"status":"` + tc.to + `"}`),
			}

			decision := Decide(state, cmd, nil)
			if tc.allowed {
				if len(decision.Events) != 1 {
					t.Fatalf("expected 1 event, got %d", len(decision.Events))
				}
				return
			}
			if len(decision.Rejections) != 1 {
				t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
			}
			if decision.Rejections[0].Code != rejectionCodeSessionInvalidStatusChange {
				t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionInvalidStatusChange)
			}
		})
	}
}

func TestDecideSessionSetStatus_WhenEnded_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RoleGM)
	state.Status = StatusEnded
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.set_status"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"status":"active"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionEnded {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionEnded)
	}
}

func TestDecideSessionSetStatus_ByPlayer_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.set_status"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"status":"paused"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideSessionChangeState_GMSetsLocation(t *testing.T) {
	state := activeState(participant.RoleGM)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"kind":"location_set","value":"  Ruined Keep "}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload StateChangePayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Value != "Ruined Keep" {
		t.Fatalf("payload value = %s, want %s", payload.Value, "Ruined Keep")
	}
}

func TestDecideSessionChangeState_PlayerMovesParty(t *testing.T) {
	state := activeState(participant.RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"kind":"party_position_set","value":"east corridor"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
}

func TestDecideSessionChangeState_PlayerSetsWeather_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"kind":"weather_set","value":"storm"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideSessionChangeState_SpectatorMovesParty_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RoleSpectator)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"kind":"party_position_set","value":"east corridor"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideSessionChangeState_RemoveMissingNPC_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RoleGM)
	state.World.NPCs = []string{"innkeeper"}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"kind":"npc_removed","value":"dragon"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionInvalidChange {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionInvalidChange)
	}
}

func TestDecideSessionChangeState_DuplicateNPC_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RoleGM)
	state.World.NPCs = []string{"innkeeper"}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"kind":"npc_added","value":"innkeeper"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionInvalidChange {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionInvalidChange)
	}
}

func TestDecideSessionChangeState_WhenPaused_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RoleGM)
	state.Status = StatusPaused
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.change_state"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"kind":"location_set","value":"camp"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionStatusDisallows {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionStatusDisallows)
	}
}

func TestDecideSessionPostMessage_SpectatorAllowed(t *testing.T) {
	state := activeState(participant.RoleSpectator)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.post_message"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"message_id":"msg-1","body":"  gl hf everyone  "}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload MessagePayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Body != "gl hf everyone" {
		t.Fatalf("payload body = %s, want %s", payload.Body, "gl hf everyone")
	}
}

func TestDecideSessionPostMessage_TooLong_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RolePlayer)
	body := make([]byte, 0, maxMessageRunes+1)
	for i := 0; i < maxMessageRunes+1; i++ {
		body = append(body, 'a')
	}
	payloadJSON, _ := json.Marshal(MessagePayload{MessageID: "msg-1", Body: string(body)})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.post_message"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeMessageTooLong {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeMessageTooLong)
	}
}

func TestDecideSessionRollDice_DeterministicForSeed(t *testing.T) {
	state := activeState(participant.RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.roll_dice"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"spec":"2D6+1","seed":99}`),
	}

	first := Decide(state, cmd, nil)
	second := Decide(state, cmd, nil)
	if len(first.Events) != 1 || len(second.Events) != 1 {
		t.Fatalf("expected 1 event per decision, got %d and %d", len(first.Events), len(second.Events))
	}

	var a, b DiceRolledPayload
	if err := json.Unmarshal(first.Events[0].PayloadJSON, &a); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if err := json.Unmarshal(second.Events[0].PayloadJSON, &b); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if a.Spec != "2d6+1" {
		t.Fatalf("payload spec = %s, want %s", a.Spec, "2d6+1")
	}
	if len(a.Values) != 2 {
		t.Fatalf("values length = %d, want %d", len(a.Values), 2)
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("value[%d] = %d, want %d", i, b.Values[i], a.Values[i])
		}
	}
	if a.Total != b.Total {
		t.Fatalf("total = %d, want %d", b.Total, a.Total)
	}
	want := a.Modifier
	for _, value := range a.Values {
		want += value
	}
	if a.Total != want {
		t.Fatalf("total = %d, want %d", a.Total, want)
	}
}

func TestDecideSessionRollDice_InvalidSpec_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.roll_dice"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"spec":"banana","seed":99}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeDiceInvalidSpec {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeDiceInvalidSpec)
	}
}

func TestDecideSessionRollDice_WhenNotActive_ReturnsRejection(t *testing.T) {
	state := activeState(participant.RolePlayer)
	state.Status = StatusPlanned
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("session.roll_dice"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"spec":"1d20","seed":1}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionStatusDisallows {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionStatusDisallows)
	}
}
