package document

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers document commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeCreate, ValidatePayload: validateCreatePayload},
		{Type: commandTypeEdit, ValidatePayload: validateEditPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// EmittableEventTypes returns all event types the document decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeDocumentCreated,
		event.TypeDocumentEdited,
	}
}

// RegisterEvents registers document events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeDocumentCreated, ValidatePayload: validateCreatePayload},
		{Type: event.TypeDocumentEdited, ValidatePayload: validateEditedPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateCreatePayload ensures create payloads match the document create shape.
func validateCreatePayload(raw json.RawMessage) error {
	var payload CreatePayload
	return json.Unmarshal(raw, &payload)
}

// validateEditPayload ensures edit payloads match the edit request shape.
func validateEditPayload(raw json.RawMessage) error {
	var payload EditPayload
	return json.Unmarshal(raw, &payload)
}

// validateEditedPayload ensures edited payloads match the applied edit shape.
func validateEditedPayload(raw json.RawMessage) error {
	var payload EditedPayload
	return json.Unmarshal(raw, &payload)
}
