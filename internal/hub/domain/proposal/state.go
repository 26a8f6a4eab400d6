package proposal

import (
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

// Vote is one voter's current choice. Re-votes overwrite in place.
type Vote struct {
	VoterID  string    `json:"voter_id"`
	OptionID string    `json:"option_id"`
	CastAt   time.Time `json:"cast_at"`
}

// Proposal is one open or resolved group decision.
type Proposal struct {
	ID             string          `json:"id"`
	Topic          string          `json:"topic"`
	Options        []string        `json:"options"`
	Mode           Mode            `json:"mode"`
	ProposerID     string          `json:"proposer_id,omitempty"`
	Deadline       time.Time       `json:"deadline"`
	Open           bool            `json:"open"`
	Eligible       []string        `json:"eligible,omitempty"`
	Votes          map[string]Vote `json:"votes,omitempty"`
	Outcome        Outcome         `json:"outcome,omitempty"`
	WinningOption  string          `json:"winning_option,omitempty"`
	ResolvedReason string          `json:"resolved_reason,omitempty"`
}

// HasOption reports whether the option id is one of the proposal's choices.
func (p Proposal) HasOption(optionID string) bool {
	for _, option := range p.Options {
		if option == optionID {
			return true
		}
	}
	return false
}

// IsEligible reports whether the voter was snapshotted at creation.
func (p Proposal) IsEligible(voterID string) bool {
	for _, id := range p.Eligible {
		if id == voterID {
			return true
		}
	}
	return false
}

// State captures proposal facts derived from proposal events.
//
// ActorRole and EligibleVoters are assigned by the projection before a
// command is decided; EligibleVoters lists the currently seated players and
// GM and seeds the eligibility snapshot of new proposals.
type State struct {
	Proposals      map[string]Proposal `json:"proposals,omitempty"`
	ActorRole      participant.Role    `json:"-"`
	EligibleVoters []string            `json:"-"`
	GMID           string              `json:"-"`
}

// NewState returns an empty proposal collection.
func NewState() State {
	return State{Proposals: map[string]Proposal{}}
}
