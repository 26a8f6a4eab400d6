package session

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the session fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeSessionCreated,
		event.TypeSessionStatusChanged,
		event.TypeSessionStateChanged,
		event.TypeSessionMessagePosted,
	}
}

// Fold applies an event to session state. It returns an error if a recognized
// event carries a payload that cannot be unmarshalled.
//
// Dice rolls are journal facts only: their results live in the event payload
// and never alter folded state, so replay cannot drift from what was
// broadcast at the table.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeSessionCreated:
		var payload CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		state.Exists = true
		state.SessionID = payload.SessionID
		state.Name = payload.Name
		state.Capacity = payload.Capacity
		state.AllowSpectators = payload.AllowSpectators
		state.Status = StatusPlanned
	case event.TypeSessionStatusChanged:
		var payload StatusPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		if next, ok := NormalizeStatus(payload.Status); ok {
			state.Status = next
		}
	case event.TypeSessionStateChanged:
		var payload StateChangePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		kind, ok := NormalizeChangeKind(payload.Kind)
		if !ok {
			return state, nil
		}
		state.World = applyWorldChange(state.World, kind, payload.Key, payload.Value)
	case event.TypeSessionMessagePosted:
		var payload MessagePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		messages := append([]Message(nil), state.Messages...)
		messages = append(messages, Message{
			ID:       payload.MessageID,
			ActorID:  evt.ActorID,
			Body:     payload.Body,
			PostedAt: evt.Timestamp,
		})
		if len(messages) > maxRecentMessages {
			messages = messages[len(messages)-maxRecentMessages:]
		}
		state.Messages = messages
	}
	return state, nil
}

// applyWorldChange returns a new world with the change applied. Slices and
// maps are copied so folded states never alias each other.
func applyWorldChange(world World, kind ChangeKind, key, value string) World {
	switch kind {
	case ChangeLocationSet:
		world.Location = value
	case ChangeWeatherSet:
		world.Weather = value
	case ChangePartyPositionSet:
		world.PartyPosition = value
	case ChangeNPCAdded:
		npcs := append([]string(nil), world.NPCs...)
		world.NPCs = append(npcs, value)
	case ChangeNPCRemoved:
		npcs := make([]string, 0, len(world.NPCs))
		for _, npc := range world.NPCs {
			if npc != value {
				npcs = append(npcs, npc)
			}
		}
		world.NPCs = npcs
	case ChangeQuestFlagSet:
		flags := make(map[string]string, len(world.QuestFlags)+1)
		for k, v := range world.QuestFlags {
			flags[k] = v
		}
		flags[key] = value
		world.QuestFlags = flags
	}
	return world
}
