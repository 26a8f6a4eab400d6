package session

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers session commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeCreate, ValidatePayload: validateCreatePayload},
		{Type: commandTypeSetStatus, ValidatePayload: validateStatusPayload},
		{Type: commandTypeChangeState, ValidatePayload: validateStateChangePayload},
		{Type: commandTypePostMessage, ValidatePayload: validateMessagePayload},
		{Type: commandTypeRollDice, ValidatePayload: validateRollPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// EmittableEventTypes returns all event types the session decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeSessionCreated,
		event.TypeSessionStatusChanged,
		event.TypeSessionStateChanged,
		event.TypeSessionMessagePosted,
		event.TypeSessionDiceRolled,
	}
}

// RegisterEvents registers session events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeSessionCreated, ValidatePayload: validateCreatePayload},
		{Type: event.TypeSessionStatusChanged, ValidatePayload: validateStatusPayload},
		{Type: event.TypeSessionStateChanged, ValidatePayload: validateStateChangePayload},
		{Type: event.TypeSessionMessagePosted, ValidatePayload: validateMessagePayload},
		{Type: event.TypeSessionDiceRolled, ValidatePayload: validateDiceRolledPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateCreatePayload ensures create payloads match the session create shape.
func validateCreatePayload(raw json.RawMessage) error {
	var payload CreatePayload
	return json.Unmarshal(raw, &payload)
}

// validateStatusPayload ensures status payloads match the lifecycle shape.
func validateStatusPayload(raw json.RawMessage) error {
	var payload StatusPayload
	return json.Unmarshal(raw, &payload)
}

// validateStateChangePayload ensures change payloads match the world change shape.
func validateStateChangePayload(raw json.RawMessage) error {
	var payload StateChangePayload
	return json.Unmarshal(raw, &payload)
}

// validateMessagePayload ensures message payloads match the chat shape.
func validateMessagePayload(raw json.RawMessage) error {
	var payload MessagePayload
	return json.Unmarshal(raw, &payload)
}

// validateRollPayload ensures roll payloads match the dice request shape.
func validateRollPayload(raw json.RawMessage) error {
	var payload RollPayload
	return json.Unmarshal(raw, &payload)
}

// validateDiceRolledPayload ensures rolled payloads match the dice result shape.
func validateDiceRolledPayload(raw json.RawMessage) error {
	var payload DiceRolledPayload
	return json.Unmarshal(raw, &payload)
}
