package proposal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

func voteState(mode Mode, deadline time.Time) State {
	state := NewState()
	state.ActorRole = participant.RolePlayer
	state.GMID = "gm-1"
	state.EligibleVoters = []string{"gm-1", "p-1", "p-2"}
	state.Proposals["prop-1"] = Proposal{
		ID:       "prop-1",
		Topic:    "Rest at the inn?",
		Options:  []string{"press-on", "rest"},
		Mode:     mode,
		Deadline: deadline,
		Open:     true,
		Eligible: []string{"p-1", "p-2"},
		Votes:    map[string]Vote{},
	}
	return state
}

func castVote(state State, voterID, optionID string) State {
	prop := state.Proposals["prop-1"]
	votes := map[string]Vote{}
	for id, vote := range prop.Votes {
		votes[id] = vote
	}
	votes[voterID] = Vote{VoterID: voterID, OptionID: optionID}
	prop.Votes = votes
	state.Proposals["prop-1"] = prop
	return state
}

func TestDecideProposalCreate_SnapshotsEligibleVoters(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	payloadJSON, _ := json.Marshal(CreatePayload{
		ProposalID:     "prop-2",
		Topic:          "  Split the loot?  ",
		Options:        []string{" even split ", "by need"},
		Mode:           "MAJORITY",
		DeadlineUnixMS: now.Add(5 * time.Minute).UnixMilli(),
	})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	evt := decision.Events[0]
	if evt.Type != event.TypeProposalCreated {
		t.Fatalf("event type = %s, want %s", evt.Type, event.TypeProposalCreated)
	}

	var payload CreatePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Topic != "Split the loot?" {
		t.Fatalf("payload topic = %s, want %s", payload.Topic, "Split the loot?")
	}
	if payload.Mode != "majority" {
		t.Fatalf("payload mode = %s, want %s", payload.Mode, "majority")
	}
	if len(payload.Options) != 2 || payload.Options[0] != "even split" {
		t.Fatalf("payload options = %v, want trimmed pair", payload.Options)
	}
	want := []string{"gm-1", "p-1", "p-2"}
	if len(payload.Eligible) != len(want) {
		t.Fatalf("eligible length = %d, want %d", len(payload.Eligible), len(want))
	}
	for i := range want {
		if payload.Eligible[i] != want[i] {
			t.Fatalf("eligible[%d] = %s, want %s", i, payload.Eligible[i], want[i])
		}
	}
}

func TestDecideProposalCreate_BySpectator_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	state.ActorRole = participant.RoleSpectator
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "spec-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-2","topic":"t","options":["a","b"],"mode":"majority"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideProposalCreate_DuplicateOptions_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	payloadJSON, _ := json.Marshal(CreatePayload{
		ProposalID:     "prop-2",
		Topic:          "Which road?",
		Options:        []string{"north", " north "},
		Mode:           "majority",
		DeadlineUnixMS: now.Add(5 * time.Minute).UnixMilli(),
	})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(voteState(ModeMajority, now.Add(time.Hour)), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalOptionsInvalid {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalOptionsInvalid)
	}
}

func TestDecideProposalCreate_SingleOption_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	payloadJSON, _ := json.Marshal(CreatePayload{
		ProposalID:     "prop-2",
		Topic:          "Which road?",
		Options:        []string{"north"},
		Mode:           "majority",
		DeadlineUnixMS: now.Add(5 * time.Minute).UnixMilli(),
	})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(voteState(ModeMajority, now.Add(time.Hour)), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalOptionsInvalid {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalOptionsInvalid)
	}
}

func TestDecideProposalCreate_DeadlineInPast_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	payloadJSON, _ := json.Marshal(CreatePayload{
		ProposalID:     "prop-2",
		Topic:          "Which road?",
		Options:        []string{"north", "south"},
		Mode:           "majority",
		DeadlineUnixMS: now.Add(-time.Minute).UnixMilli(),
	})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(voteState(ModeMajority, now.Add(time.Hour)), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalDeadlinePast {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalDeadlinePast)
	}
}

func TestDecideProposalCreate_InvalidMode_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	payloadJSON, _ := json.Marshal(CreatePayload{
		ProposalID:     "prop-2",
		Topic:          "Which road?",
		Options:        []string{"north", "south"},
		Mode:           "coin_flip",
		DeadlineUnixMS: now.Add(5 * time.Minute).UnixMilli(),
	})
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.create"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: payloadJSON,
	}

	decision := Decide(voteState(ModeMajority, now.Add(time.Hour)), cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalModeInvalid {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalModeInvalid)
	}
}

func TestDecideProposalVote_RecordsBallot(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"rest"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeProposalVoteCast {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeProposalVoteCast)
	}
}

func TestDecideProposalVote_LastBallotResolvesProposal(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	state = castVote(state, "p-1", "rest")
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-2",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"rest"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeProposalVoteCast {
		t.Fatalf("first event type = %s, want %s", decision.Events[0].Type, event.TypeProposalVoteCast)
	}
	if decision.Events[1].Type != event.TypeProposalResolved {
		t.Fatalf("second event type = %s, want %s", decision.Events[1].Type, event.TypeProposalResolved)
	}

	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[1].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Outcome != string(OutcomeDecided) {
		t.Fatalf("outcome = %s, want %s", payload.Outcome, OutcomeDecided)
	}
	if payload.WinningOption != "rest" {
		t.Fatalf("winning option = %s, want %s", payload.WinningOption, "rest")
	}
	if payload.Reason != ReasonCompletion {
		t.Fatalf("reason = %s, want %s", payload.Reason, ReasonCompletion)
	}
	if payload.Counts["rest"] != 2 {
		t.Fatalf("counts[rest] = %d, want %d", payload.Counts["rest"], 2)
	}
}

func TestDecideProposalVote_MajorityTieBreaksLexicographically(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	state = castVote(state, "p-1", "rest")
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-2",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"press-on"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decision.Events))
	}
	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[1].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.WinningOption != "press-on" {
		t.Fatalf("winning option = %s, want %s", payload.WinningOption, "press-on")
	}
}

func TestDecideProposalVote_GMDecidesOverridesTally(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeGMDecides, now.Add(10*time.Minute))
	prop := state.Proposals["prop-1"]
	prop.Eligible = []string{"gm-1", "p-1", "p-2"}
	state.Proposals["prop-1"] = prop
	state = castVote(state, "p-1", "rest")
	state = castVote(state, "p-2", "rest")
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"press-on"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decision.Events))
	}
	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[1].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Outcome != string(OutcomeDecided) {
		t.Fatalf("outcome = %s, want %s", payload.Outcome, OutcomeDecided)
	}
	if payload.WinningOption != "press-on" {
		t.Fatalf("winning option = %s, want %s", payload.WinningOption, "press-on")
	}
}

func TestDecideProposalVote_GMBallotAloneDoesNotResolve(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeGMDecides, now.Add(10*time.Minute))
	prop := state.Proposals["prop-1"]
	prop.Eligible = []string{"gm-1", "p-1", "p-2"}
	state.Proposals["prop-1"] = prop
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"press-on"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeProposalVoteCast {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeProposalVoteCast)
	}
}

func TestDecideProposalVote_NotEligible_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-9",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"rest"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalVoterNotEligible {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalVoterNotEligible)
	}
}

func TestDecideProposalVote_AfterDeadline_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(-time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"rest"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalClosed {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalClosed)
	}
}

func TestDecideProposalVote_UnknownOption_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"flee"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalOptionInvalid {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalOptionInvalid)
	}
}

func TestDecideProposalVote_RevoteDoesNotResolveEarly(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	state = castVote(state, "p-1", "rest")
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.vote"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1","option_id":"press-on"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != event.TypeProposalVoteCast {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, event.TypeProposalVoteCast)
	}
}

func TestDecideProposalResolve_GMRecordsOutcome(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeUnanimous, now.Add(10*time.Minute))
	state = castVote(state, "p-1", "rest")
	state.ActorRole = participant.RoleGM
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.resolve"),
		ActorType:   command.ActorTypeGM,
		ActorID:     "gm-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Outcome != string(OutcomeDecided) {
		t.Fatalf("outcome = %s, want %s", payload.Outcome, OutcomeDecided)
	}
	if payload.WinningOption != "rest" {
		t.Fatalf("winning option = %s, want %s", payload.WinningOption, "rest")
	}
	if payload.Reason != ReasonGM {
		t.Fatalf("reason = %s, want %s", payload.Reason, ReasonGM)
	}
}

func TestDecideProposalResolve_ByPlayer_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.resolve"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}

func TestDecideProposalExpire_BeforeDeadline_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(10*time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.expire"),
		ActorType:   command.ActorTypeSystem,
		ActorID:     "system",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeProposalDeadlineNotReached {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeProposalDeadlineNotReached)
	}
}

func TestDecideProposalExpire_NoVotes_ExpiresProposal(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(-time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.expire"),
		ActorType:   command.ActorTypeSystem,
		ActorID:     "system",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Outcome != string(OutcomeExpired) {
		t.Fatalf("outcome = %s, want %s", payload.Outcome, OutcomeExpired)
	}
	if payload.WinningOption != "" {
		t.Fatalf("winning option = %s, want empty", payload.WinningOption)
	}
	if payload.Reason != ReasonDeadline {
		t.Fatalf("reason = %s, want %s", payload.Reason, ReasonDeadline)
	}
}

func TestDecideProposalExpire_UnanimousDisagreement_Fails(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeUnanimous, now.Add(-time.Minute))
	state = castVote(state, "p-1", "rest")
	state = castVote(state, "p-2", "press-on")
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.expire"),
		ActorType:   command.ActorTypeSystem,
		ActorID:     "system",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	var payload ResolvedPayload
	if err := json.Unmarshal(decision.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Outcome != string(OutcomeFailed) {
		t.Fatalf("outcome = %s, want %s", payload.Outcome, OutcomeFailed)
	}
	if payload.Counts["rest"] != 1 || payload.Counts["press-on"] != 1 {
		t.Fatalf("counts = %v, want one ballot per option", payload.Counts)
	}
}

func TestDecideProposalExpire_ByParticipant_ReturnsRejection(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	state := voteState(ModeMajority, now.Add(-time.Minute))
	cmd := command.Command{
		SessionID:   "sess-1",
		Type:        command.Type("proposal.expire"),
		ActorType:   command.ActorTypeParticipant,
		ActorID:     "p-1",
		PayloadJSON: []byte(`{"proposal_id":"prop-1"}`),
	}

	decision := Decide(state, cmd, func() time.Time { return now })
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeUnauthorized {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeUnauthorized)
	}
}
