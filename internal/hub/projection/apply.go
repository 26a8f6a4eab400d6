package projection

import (
	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
)

// applyEntry maps one domain's handled event types to the fold that updates
// its slice of State. Adding a domain means adding an entry here.
type applyEntry struct {
	types func() []event.Type
	apply func(state *State, evt event.Event) error
}

func applyEntries() []applyEntry {
	return []applyEntry{
		{
			types: session.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := session.Fold(state.Session, evt)
				if err != nil {
					return err
				}
				state.Session = updated
				return nil
			},
		},
		{
			types: participant.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := participant.Fold(state.Roster, evt)
				if err != nil {
					return err
				}
				state.Roster = updated
				return nil
			},
		},
		{
			types: document.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := document.Fold(state.Documents, evt)
				if err != nil {
					return err
				}
				state.Documents = updated
				return nil
			},
		},
		{
			types: proposal.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := proposal.Fold(state.Proposals, evt)
				if err != nil {
					return err
				}
				state.Proposals = updated
				return nil
			},
		},
		{
			types: round.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := round.Fold(state.Rounds, evt)
				if err != nil {
					return err
				}
				state.Rounds = updated
				return nil
			},
		},
		{
			types: resource.FoldHandledTypes,
			apply: func(state *State, evt event.Event) error {
				updated, err := resource.Fold(state.Resources, evt)
				if err != nil {
					return err
				}
				state.Resources = updated
				return nil
			},
		},
	}
}

var applyIndex = buildApplyIndex()

func buildApplyIndex() map[event.Type]func(*State, event.Event) error {
	index := make(map[event.Type]func(*State, event.Event) error)
	for _, entry := range applyEntries() {
		fn := entry.apply
		for _, t := range entry.types() {
			index[t] = fn
		}
	}
	return index
}

// HandledTypes returns every event type Apply dispatches to a domain fold.
func HandledTypes() []event.Type {
	types := make([]event.Type, 0, len(applyIndex))
	for t := range applyIndex {
		types = append(types, t)
	}
	return types
}

// Apply folds a single event into the materialized state. Event types no
// domain handles leave the state untouched, so audit-only additions to the
// journal never break replay. A fold error means the journal contradicts
// the domain's invariants and the caller must stop applying.
func Apply(state State, evt event.Event) (State, error) {
	fn, ok := applyIndex[evt.Type]
	if !ok {
		return state, nil
	}
	if err := fn(&state, evt); err != nil {
		return state, err
	}
	return state, nil
}
