package projection

import (
	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
)

// State is the materialized session state: every domain slice reduced from
// the session journal. One lane owns one State; everything a command decider
// or a snapshot reader needs lives here.
type State struct {
	Session   session.State     `json:"session"`
	Roster    participant.State `json:"roster"`
	Documents document.State    `json:"documents"`
	Proposals proposal.State    `json:"proposals"`
	Rounds    round.State       `json:"rounds"`
	Resources resource.State    `json:"resources"`
}

// NewState returns an empty materialized state.
func NewState() State {
	return State{
		Roster:    participant.NewState(),
		Documents: document.NewState(),
		Proposals: proposal.NewState(),
		Rounds:    round.NewState(),
		Resources: resource.NewState(),
	}
}

// normalize restores the map fields a JSON round trip leaves nil so folds
// can write through without guards.
func (s State) normalize() State {
	if s.Roster.Participants == nil {
		s.Roster.Participants = map[string]participant.Participant{}
	}
	if s.Documents.Documents == nil {
		s.Documents.Documents = map[string]document.Document{}
	}
	if s.Proposals.Proposals == nil {
		s.Proposals.Proposals = map[string]proposal.Proposal{}
	}
	if s.Rounds.Current.Declarations == nil && s.Rounds.Current.Active {
		s.Rounds.Current.Declarations = map[string]round.Declaration{}
	}
	if s.Resources.Resources == nil {
		s.Resources.Resources = map[string]resource.Resource{}
	}
	if s.Resources.Transactions == nil {
		s.Resources.Transactions = map[string]resource.Transaction{}
	}
	return s
}
