package participant

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

func openState() State {
	return State{
		SessionExists:   true,
		Capacity:        2,
		AllowSpectators: true,
		Participants:    map[string]Participant{},
	}
}

func seatParticipant(state State, id string, role Role) State {
	state.Participants[id] = Participant{
		ID:          id,
		UserID:      "user-" + id,
		DisplayName: "Member " + id,
		Role:        role,
		Presence:    PresenceConnected,
	}
	return state
}

func TestDecideParticipantJoin_EmitsParticipantJoinedEvent(t *testing.T) {
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","user_id":" user-1 ","display_name":"  Alice  ","role":"PLAYER"}`),
	}

	decision := Decide(openState(), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}

	evt := decision.Events[0]
	if evt.SessionID != "sess-1" {
		t.Fatalf("event session id = %s, want %s", evt.SessionID, "sess-1")
	}
	if evt.Type != event.TypeParticipantJoined {
		t.Fatalf("event type = %s, want %s", evt.Type, event.TypeParticipantJoined)
	}
	if evt.EntityType != "participant" {
		t.Fatalf("event entity type = %s, want %s", evt.EntityType, "participant")
	}
	if evt.EntityID != "p-1" {
		t.Fatalf("event entity id = %s, want %s", evt.EntityID, "p-1")
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("event timestamp = %s, want %s", evt.Timestamp, now)
	}

	var payload JoinPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UserID != "user-1" {
		t.Fatalf("payload user id = %s, want %s", payload.UserID, "user-1")
	}
	if payload.DisplayName != "Alice" {
		t.Fatalf("payload display name = %s, want %s", payload.DisplayName, "Alice")
	}
	if payload.Role != "player" {
		t.Fatalf("payload role = %s, want %s", payload.Role, "player")
	}
}

func TestDecideParticipantJoin_WhenFull_WaitlistsWithPosition(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-3",
		PayloadJSON: []byte(`{"participant_id":"p-3","display_name":"Carol","role":"player"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	evt := decision.Events[0]
	if evt.Type != event.TypeParticipantWaitlisted {
		t.Fatalf("event type = %s, want %s", evt.Type, event.TypeParticipantWaitlisted)
	}

	var payload WaitlistedPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Position != 1 {
		t.Fatalf("queue position = %d, want %d", payload.Position, 1)
	}
}

func TestDecideParticipantJoin_WhenFull_QueuePositionsAccumulate(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	state.Waitlist = []WaitEntry{{ID: "p-3", Position: 1}}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-4",
		PayloadJSON: []byte(`{"participant_id":"p-4","display_name":"Dave","role":"player"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload WaitlistedPayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Position != 2 {
		t.Fatalf("queue position = %d, want %d", payload.Position, 2)
	}
}

func TestDecideParticipantJoin_WhenFull_FallsBackToSpectator(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-3",
		PayloadJSON: []byte(`{"participant_id":"p-3","display_name":"Carol","role":"player","spectator_fallback":true}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	evt := decision.Events[0]
	if evt.Type != event.TypeParticipantJoined {
		t.Fatalf("event type = %s, want %s", evt.Type, event.TypeParticipantJoined)
	}

	var payload JoinPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Role != "spectator" {
		t.Fatalf("payload role = %s, want %s", payload.Role, "spectator")
	}
	if payload.RequestedRole != "player" {
		t.Fatalf("payload requested role = %s, want %s", payload.RequestedRole, "player")
	}
}

func TestDecideParticipantJoin_FallbackWithoutSpectators_Waitlists(t *testing.T) {
	state := openState()
	state.AllowSpectators = false
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-3",
		PayloadJSON: []byte(`{"participant_id":"p-3","display_name":"Carol","role":"player","spectator_fallback":true}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeParticipantWaitlisted {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeParticipantWaitlisted)
	}
}

func TestDecideParticipantJoin_GMDoesNotOccupyPlayerSeat(t *testing.T) {
	state := openState()
	state.Capacity = 1
	state = seatParticipant(state, "gm-1", RoleGM)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","display_name":"Alice","role":"player"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeParticipantJoined {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeParticipantJoined)
	}
}

func TestDecideParticipantJoin_SecondGM_ReturnsRejection(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "gm-1", RoleGM)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "gm-2",
		PayloadJSON: []byte(`{"participant_id":"gm-2","display_name":"Eve","role":"gm"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeGMSeatTaken {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeGMSeatTaken)
	}
}

func TestDecideParticipantJoin_SpectatorWhenDisabled_ReturnsRejection(t *testing.T) {
	state := openState()
	state.AllowSpectators = false
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","display_name":"Alice","role":"spectator"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSpectatorsDisabled {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSpectatorsDisabled)
	}
}

func TestDecideParticipantJoin_WhenSessionEnded_ReturnsRejection(t *testing.T) {
	state := openState()
	state.SessionEnded = true
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","display_name":"Alice","role":"player"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeSessionEnded {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeSessionEnded)
	}
}

func TestDecideParticipantJoin_DuplicateUser_ReturnsRejection(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.join"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-9",
		PayloadJSON: []byte(`{"participant_id":"p-9","user_id":"user-p-1","display_name":"Alice Again","role":"player"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeParticipantAlreadyJoined {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeParticipantAlreadyJoined)
	}
}

func TestDecideParticipantLeave_PromotesWaitlistHead(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	state.Waitlist = []WaitEntry{{ID: "p-3", UserID: "user-p-3", DisplayName: "Carol", Position: 1}}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.leave"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeParticipantLeft {
		t.Fatalf("first event type = %s, want %s", decision.Events[0].Type, event.TypeParticipantLeft)
	}
	if decision.Events[1].Type != event.TypeParticipantPromoted {
		t.Fatalf("second event type = %s, want %s", decision.Events[1].Type, event.TypeParticipantPromoted)
	}

	var payload PromotedPayload
	if err := json.Unmarshal(decision.Events[1].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ParticipantID != "p-3" {
		t.Fatalf("promoted participant = %s, want %s", payload.ParticipantID, "p-3")
	}
	if payload.Role != "player" {
		t.Fatalf("promoted role = %s, want %s", payload.Role, "player")
	}
}

func TestDecideParticipantLeave_SpectatorLeave_DoesNotPromote(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RoleSpectator)
	state.Waitlist = []WaitEntry{{ID: "p-3", Position: 1}}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.leave"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeParticipantLeft {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeParticipantLeft)
	}
}

func TestDecideParticipantLeave_ByGM_Allowed(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "gm-1", RoleGM)
	state = seatParticipant(state, "p-1", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.leave"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","reason":"removed by gm"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
}

func TestDecideParticipantLeave_ByOtherPlayer_ReturnsRejection(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	state = seatParticipant(state, "p-2", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.leave"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-2",
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideParticipantDisconnect_EmitsDisconnectedEvent(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	graceUntil := now.Add(2 * time.Minute).UnixMilli()
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.disconnect"),
		ActorType:   command.ActorTypeSystem,
		PayloadJSON: []byte(`{"participant_id":"p-1","grace_until_unix_ms":` + jsonInt(graceUntil) + `}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload DisconnectPayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.GraceUntilUnixMS != graceUntil {
		t.Fatalf("grace deadline = %d, want %d", payload.GraceUntilUnixMS, graceUntil)
	}
}

func TestDecideParticipantReconnect_WhenConnected_ReturnsRejection(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.reconnect"),
		ActorType:   command.ActorTypeSystem,
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeParticipantAlreadyOnline {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeParticipantAlreadyOnline)
	}
}

func TestDecideParticipantExpire_BeforeGraceDeadline_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	seated := state.Participants["p-1"]
	seated.Presence = PresenceDisconnected
	seated.GraceUntil = now.Add(time.Minute)
	state.Participants["p-1"] = seated
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.expire"),
		ActorType:   command.ActorTypeSystem,
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeParticipantGraceActive {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeParticipantGraceActive)
	}
}

func TestDecideParticipantExpire_EmitsLeftAndPromotes(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	seated := state.Participants["p-1"]
	seated.Presence = PresenceDisconnected
	seated.GraceUntil = now.Add(-time.Second)
	state.Participants["p-1"] = seated
	state.Waitlist = []WaitEntry{{ID: "p-3", DisplayName: "Carol", Position: 1}}
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.expire"),
		ActorType:   command.ActorTypeSystem,
		PayloadJSON: []byte(`{"participant_id":"p-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decision.Events))
	}
	var payload LeavePayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Reason != leaveReasonReconnectWindowElapsed {
		t.Fatalf("leave reason = %s, want %s", payload.Reason, leaveReasonReconnectWindowElapsed)
	}
	if decision.Events[1].Type != event.TypeParticipantPromoted {
		t.Fatalf("second event type = %s, want %s", decision.Events[1].Type, event.TypeParticipantPromoted)
	}
}

func TestDecideParticipantUpdate_NormalizesFields(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.update"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","fields":{"display_name":"  Alice the Bold ","character_id":"char-7"}}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload UpdatePayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Fields["display_name"] != "Alice the Bold" {
		t.Fatalf("display name = %s, want %s", payload.Fields["display_name"], "Alice the Bold")
	}
	if payload.Fields["character_id"] != "char-7" {
		t.Fatalf("character id = %s, want %s", payload.Fields["character_id"], "char-7")
	}
}

func TestDecideParticipantUpdate_UnknownField_ReturnsRejection(t *testing.T) {
	state := openState()
	state = seatParticipant(state, "p-1", RolePlayer)
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("participant.update"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"participant_id":"p-1","fields":{"role":"gm"}}`),
	}

	decision := Decide(state, cmd, nil)
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeParticipantFieldInvalid {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeParticipantFieldInvalid)
	}
}

func jsonInt(value int64) string {
	raw, _ := json.Marshal(value)
	return string(raw)
}
