package proposal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the proposal fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeProposalCreated,
		event.TypeProposalVoteCast,
		event.TypeProposalResolved,
	}
}

// Fold applies an event to the proposal collection. It returns an error if a
// recognized event carries a payload that cannot be unmarshalled.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeProposalCreated:
		var payload CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("proposal fold %s: %w", evt.Type, err)
		}
		mode, _ := NormalizeMode(payload.Mode)
		state.Proposals = cloneProposals(state.Proposals)
		state.Proposals[payload.ProposalID] = Proposal{
			ID:         payload.ProposalID,
			Topic:      payload.Topic,
			Options:    append([]string(nil), payload.Options...),
			Mode:       mode,
			ProposerID: evt.ActorID,
			Deadline:   time.UnixMilli(payload.DeadlineUnixMS).UTC(),
			Open:       true,
			Eligible:   append([]string(nil), payload.Eligible...),
			Votes:      map[string]Vote{},
		}
	case event.TypeProposalVoteCast:
		var payload VotePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("proposal fold %s: %w", evt.Type, err)
		}
		prop, ok := state.Proposals[payload.ProposalID]
		if !ok {
			return state, nil
		}
		votes := make(map[string]Vote, len(prop.Votes)+1)
		for id, vote := range prop.Votes {
			votes[id] = vote
		}
		votes[evt.ActorID] = Vote{VoterID: evt.ActorID, OptionID: payload.OptionID, CastAt: evt.Timestamp}
		prop.Votes = votes
		state.Proposals = cloneProposals(state.Proposals)
		state.Proposals[payload.ProposalID] = prop
	case event.TypeProposalResolved:
		var payload ResolvedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("proposal fold %s: %w", evt.Type, err)
		}
		prop, ok := state.Proposals[payload.ProposalID]
		if !ok {
			return state, nil
		}
		prop.Open = false
		prop.Outcome = Outcome(payload.Outcome)
		prop.WinningOption = payload.WinningOption
		prop.ResolvedReason = payload.Reason
		state.Proposals = cloneProposals(state.Proposals)
		state.Proposals[payload.ProposalID] = prop
	}
	return state, nil
}

func cloneProposals(proposals map[string]Proposal) map[string]Proposal {
	cloned := make(map[string]Proposal, len(proposals)+1)
	for id, p := range proposals {
		cloned[id] = p
	}
	return cloned
}
