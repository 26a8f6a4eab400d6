package proposal

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

const (
	commandTypeCreate  command.Type = "proposal.create"
	commandTypeVote    command.Type = "proposal.vote"
	commandTypeResolve command.Type = "proposal.resolve"
	commandTypeExpire  command.Type = "proposal.expire"

	rejectionCodeProposalIDRequired         = "PROPOSAL_ID_REQUIRED"
	rejectionCodeProposalAlreadyExists      = "PROPOSAL_ALREADY_EXISTS"
	rejectionCodeProposalNotFound           = "PROPOSAL_NOT_FOUND"
	rejectionCodeProposalTopicEmpty         = "PROPOSAL_TOPIC_EMPTY"
	rejectionCodeProposalOptionsInvalid     = "PROPOSAL_OPTIONS_INVALID"
	rejectionCodeProposalModeInvalid        = "PROPOSAL_MODE_INVALID"
	rejectionCodeProposalDeadlinePast       = "PROPOSAL_DEADLINE_PAST"
	rejectionCodeProposalClosed             = "PROPOSAL_CLOSED"
	rejectionCodeProposalOptionInvalid      = "PROPOSAL_OPTION_INVALID"
	rejectionCodeProposalVoterNotEligible   = "PROPOSAL_VOTER_NOT_ELIGIBLE"
	rejectionCodeProposalDeadlineNotReached = "PROPOSAL_DEADLINE_NOT_REACHED"
	rejectionCodeUnauthorized               = "UNAUTHORIZED"

	maxTopicRunes  = 200
	minOptions     = 2
	maxOptions     = 20
	maxOptionRunes = 100
)

// Decide returns the decision for a proposal command against current state.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeCreate {
		if cmd.ActorType != command.ActorTypeSystem && !state.ActorRole.CanWrite() {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor may not open proposals",
			})
		}
		var payload CreatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		proposalID := strings.TrimSpace(payload.ProposalID)
		if proposalID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalIDRequired,
				Message: "proposal id is required",
			})
		}
		if _, ok := state.Proposals[proposalID]; ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalAlreadyExists,
				Message: "proposal already exists",
			})
		}
		topic := strings.TrimSpace(payload.Topic)
		if topic == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalTopicEmpty,
				Message: "proposal topic is required",
			})
		}
		if utf8.RuneCountInString(topic) > maxTopicRunes {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalTopicEmpty,
				Message: "proposal topic is too long",
			})
		}
		options := make([]string, 0, len(payload.Options))
		seen := make(map[string]bool, len(payload.Options))
		for _, option := range payload.Options {
			option = strings.TrimSpace(option)
			if option == "" || utf8.RuneCountInString(option) > maxOptionRunes || seen[option] {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeProposalOptionsInvalid,
					Message: "proposal options must be distinct and non-empty",
				})
			}
			seen[option] = true
			options = append(options, option)
		}
		if len(options) < minOptions || len(options) > maxOptions {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalOptionsInvalid,
				Message: "proposal needs between two and twenty options",
			})
		}
		mode, ok := NormalizeMode(payload.Mode)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalModeInvalid,
				Message: "voting mode is invalid",
			})
		}
		deadline := time.UnixMilli(payload.DeadlineUnixMS).UTC()
		if !deadline.After(now().UTC()) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalDeadlinePast,
				Message: "proposal deadline must be in the future",
			})
		}

		normalized := CreatePayload{
			ProposalID:     proposalID,
			Topic:          topic,
			Options:        options,
			Mode:           string(mode),
			DeadlineUnixMS: payload.DeadlineUnixMS,
			Eligible:       append([]string(nil), state.EligibleVoters...),
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeProposalCreated, "proposal", proposalID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeVote {
		var payload VotePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		proposalID := strings.TrimSpace(payload.ProposalID)
		prop, ok := state.Proposals[proposalID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalNotFound,
				Message: "proposal does not exist",
			})
		}
		if !prop.Open || !now().UTC().Before(prop.Deadline) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalClosed,
				Message: "proposal is no longer accepting votes",
			})
		}
		if !prop.IsEligible(cmd.ActorID) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalVoterNotEligible,
				Message: "actor is not eligible to vote on this proposal",
			})
		}
		optionID := strings.TrimSpace(payload.OptionID)
		if !prop.HasOption(optionID) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalOptionInvalid,
				Message: "option is not part of this proposal",
			})
		}

		normalized := VotePayload{ProposalID: proposalID, OptionID: optionID}
		payloadJSON, _ := json.Marshal(normalized)
		voteEvt := command.NewEvent(cmd, event.TypeProposalVoteCast, "proposal", proposalID, payloadJSON, now().UTC())

		votes := make(map[string]Vote, len(prop.Votes)+1)
		for id, vote := range prop.Votes {
			votes[id] = vote
		}
		votes[cmd.ActorID] = Vote{VoterID: cmd.ActorID, OptionID: optionID, CastAt: now().UTC()}
		if !votingComplete(prop, votes) {
			return command.Accept(voteEvt)
		}

		outcome, winning, counts := computeOutcome(prop, votes, state.GMID)
		resolved := ResolvedPayload{
			ProposalID:    proposalID,
			Outcome:       string(outcome),
			WinningOption: winning,
			Counts:        counts,
			Reason:        ReasonCompletion,
		}
		resolvedJSON, _ := json.Marshal(resolved)
		resolvedEvt := command.NewEvent(cmd, event.TypeProposalResolved, "proposal", proposalID, resolvedJSON, now().UTC())
		return command.Accept(voteEvt, resolvedEvt)
	}

	if cmd.Type == commandTypeResolve {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		var payload ResolvePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		proposalID := strings.TrimSpace(payload.ProposalID)
		prop, ok := state.Proposals[proposalID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalNotFound,
				Message: "proposal does not exist",
			})
		}
		if !prop.Open {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalClosed,
				Message: "proposal is already resolved",
			})
		}

		outcome, winning, counts := computeOutcome(prop, prop.Votes, state.GMID)
		resolved := ResolvedPayload{
			ProposalID:    proposalID,
			Outcome:       string(outcome),
			WinningOption: winning,
			Counts:        counts,
			Reason:        ReasonGM,
		}
		payloadJSON, _ := json.Marshal(resolved)
		evt := command.NewEvent(cmd, event.TypeProposalResolved, "proposal", proposalID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeExpire {
		if cmd.ActorType != command.ActorTypeSystem {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "only the system may expire proposals",
			})
		}
		var payload ResolvePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		proposalID := strings.TrimSpace(payload.ProposalID)
		prop, ok := state.Proposals[proposalID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalNotFound,
				Message: "proposal does not exist",
			})
		}
		if !prop.Open {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalClosed,
				Message: "proposal is already resolved",
			})
		}
		if now().UTC().Before(prop.Deadline) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProposalDeadlineNotReached,
				Message: "proposal deadline has not passed",
			})
		}

		outcome, winning, counts := computeOutcome(prop, prop.Votes, state.GMID)
		resolved := ResolvedPayload{
			ProposalID:    proposalID,
			Outcome:       string(outcome),
			WinningOption: winning,
			Counts:        counts,
			Reason:        ReasonDeadline,
		}
		payloadJSON, _ := json.Marshal(resolved)
		evt := command.NewEvent(cmd, event.TypeProposalResolved, "proposal", proposalID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	return command.Decision{}
}

// votingComplete reports whether every eligible voter has cast a ballot.
// Completion and the deadline are the only resolution triggers; a decisive
// ballot does not close the window early, so re-votes stay possible until
// the last eligible voter weighs in.
func votingComplete(prop Proposal, votes map[string]Vote) bool {
	if len(prop.Eligible) == 0 {
		return false
	}
	for _, id := range prop.Eligible {
		if _, ok := votes[id]; !ok {
			return false
		}
	}
	return true
}

// computeOutcome tallies ballots under the proposal mode. Outcomes are judged
// over cast votes; eligible voters who never voted do not veto. Majority ties
// break to the lexicographically smallest option so replays agree.
func computeOutcome(prop Proposal, votes map[string]Vote, gmID string) (Outcome, string, map[string]int) {
	counts := make(map[string]int, len(prop.Options))
	for _, vote := range votes {
		counts[vote.OptionID]++
	}
	if len(votes) == 0 {
		return OutcomeExpired, "", counts
	}

	switch prop.Mode {
	case ModeGMDecides:
		if gmID != "" {
			if vote, ok := votes[gmID]; ok {
				return OutcomeDecided, vote.OptionID, counts
			}
		}
		return OutcomeExpired, "", counts
	case ModeUnanimous:
		first := ""
		for _, vote := range votes {
			if first == "" {
				first = vote.OptionID
				continue
			}
			if vote.OptionID != first {
				return OutcomeFailed, "", counts
			}
		}
		return OutcomeDecided, first, counts
	default:
		winner := ""
		best := 0
		for _, option := range prop.Options {
			count := counts[option]
			if count > best || (count > 0 && count == best && option < winner) {
				winner = option
				best = count
			}
		}
		return OutcomeDecided, winner, counts
	}
}

// requireGM allows system commands and the seated game master.
func requireGM(state State, cmd command.Command) (command.Rejection, bool) {
	if cmd.ActorType == command.ActorTypeSystem {
		return command.Rejection{}, true
	}
	if state.ActorRole == participant.RoleGM {
		return command.Rejection{}, true
	}
	return command.Rejection{
		Code:    rejectionCodeUnauthorized,
		Message: "only the game master may do this",
	}, false
}
