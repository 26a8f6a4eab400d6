package resource

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers resource commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeCreate, ValidatePayload: validateCreatePayload},
		{Type: commandTypeRequest, ValidatePayload: validateRequestPayload},
		{Type: commandTypeDecide, ValidatePayload: validateDecidePayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// EmittableEventTypes returns all event types the resource decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeResourceCreated,
		event.TypeResourceTransactionRequested,
		event.TypeResourceTransactionDecided,
	}
}

// RegisterEvents registers resource events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeResourceCreated, ValidatePayload: validateCreatePayload},
		{Type: event.TypeResourceTransactionRequested, ValidatePayload: validateRequestPayload},
		{Type: event.TypeResourceTransactionDecided, ValidatePayload: validateDecidedPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateCreatePayload ensures create payloads match the pool shape.
func validateCreatePayload(raw json.RawMessage) error {
	var payload CreatePayload
	return json.Unmarshal(raw, &payload)
}

// validateRequestPayload ensures request payloads match the transaction shape.
func validateRequestPayload(raw json.RawMessage) error {
	var payload RequestPayload
	return json.Unmarshal(raw, &payload)
}

// validateDecidePayload ensures decide payloads match the ruling shape.
func validateDecidePayload(raw json.RawMessage) error {
	var payload DecidePayload
	return json.Unmarshal(raw, &payload)
}

// validateDecidedPayload ensures decided payloads match the outcome shape.
func validateDecidedPayload(raw json.RawMessage) error {
	var payload DecidedPayload
	return json.Unmarshal(raw, &payload)
}
