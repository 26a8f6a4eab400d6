package round

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers round commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeStart, ValidatePayload: validateStartPayload},
		{Type: commandTypeDeclareAction, ValidatePayload: validateDeclarePayload},
		{Type: commandTypeResolve, ValidatePayload: validateResolvePayload},
		{Type: commandTypeExpire, ValidatePayload: validateResolvePayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// EmittableEventTypes returns all event types the round decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeRoundStarted,
		event.TypeRoundActionDeclared,
		event.TypeRoundResolved,
	}
}

// RegisterEvents registers round events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeRoundStarted, ValidatePayload: validateStartPayload},
		{Type: event.TypeRoundActionDeclared, ValidatePayload: validateDeclaredPayload},
		{Type: event.TypeRoundResolved, ValidatePayload: validateResolvedPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateStartPayload ensures start payloads match the round roster shape.
func validateStartPayload(raw json.RawMessage) error {
	var payload StartPayload
	return json.Unmarshal(raw, &payload)
}

// validateDeclarePayload ensures declare payloads match the declaration shape.
func validateDeclarePayload(raw json.RawMessage) error {
	var payload DeclarePayload
	return json.Unmarshal(raw, &payload)
}

// validateDeclaredPayload ensures declared payloads carry the stamped initiative.
func validateDeclaredPayload(raw json.RawMessage) error {
	var payload DeclaredPayload
	return json.Unmarshal(raw, &payload)
}

// validateResolvePayload ensures resolve payloads name a round.
func validateResolvePayload(raw json.RawMessage) error {
	var payload ResolvePayload
	return json.Unmarshal(raw, &payload)
}

// validateResolvedPayload ensures resolved payloads match the result shape.
func validateResolvedPayload(raw json.RawMessage) error {
	var payload ResolvedPayload
	return json.Unmarshal(raw, &payload)
}
