package round

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the round fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeRoundStarted,
		event.TypeRoundActionDeclared,
		event.TypeRoundResolved,
	}
}

// Fold applies an event to the round state. It returns an error if a
// recognized event carries a payload that cannot be unmarshalled.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeRoundStarted:
		var payload StartPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("round fold %s: %w", evt.Type, err)
		}
		state.Current = Round{
			ID:           payload.RoundID,
			Entries:      append([]Entry(nil), payload.Entries...),
			Deadline:     time.UnixMilli(payload.DeadlineUnixMS).UTC(),
			Active:       true,
			Declarations: map[string]Declaration{},
		}
	case event.TypeRoundActionDeclared:
		var payload DeclaredPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("round fold %s: %w", evt.Type, err)
		}
		if !state.Current.Active || state.Current.ID != payload.RoundID {
			return state, nil
		}
		declarations := make(map[string]Declaration, len(state.Current.Declarations)+1)
		for id, decl := range state.Current.Declarations {
			declarations[id] = decl
		}
		declarations[payload.CharacterID] = Declaration{
			CharacterID: payload.CharacterID,
			Action:      payload.Action,
			Target:      payload.Target,
			DeclaredBy:  evt.ActorID,
			DeclaredAt:  evt.Timestamp,
		}
		state.Current.Declarations = declarations
	case event.TypeRoundResolved:
		var payload ResolvedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("round fold %s: %w", evt.Type, err)
		}
		if state.Current.ID != payload.RoundID {
			return state, nil
		}
		// Declarations are consumed by the resolution and discarded.
		state.Current = Round{}
	}
	return state, nil
}
