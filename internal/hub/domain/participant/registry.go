package participant

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers participant commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeJoin, ValidatePayload: validateJoinPayload},
		{Type: commandTypeUpdate, ValidatePayload: validateUpdatePayload},
		{Type: commandTypeLeave, ValidatePayload: validateLeavePayload},
		{Type: commandTypeDisconnect, ValidatePayload: validateDisconnectPayload},
		{Type: commandTypeReconnect, ValidatePayload: validateReconnectPayload},
		{Type: commandTypeExpire, ValidatePayload: validateExpirePayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// EmittableEventTypes returns all event types the participant decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeParticipantJoined,
		event.TypeParticipantWaitlisted,
		event.TypeParticipantPromoted,
		event.TypeParticipantUpdated,
		event.TypeParticipantLeft,
		event.TypeParticipantDisconnected,
		event.TypeParticipantReconnected,
	}
}

// RegisterEvents registers participant events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeParticipantJoined, ValidatePayload: validateJoinPayload},
		{Type: event.TypeParticipantWaitlisted, ValidatePayload: validateWaitlistedPayload},
		{Type: event.TypeParticipantPromoted, ValidatePayload: validatePromotedPayload},
		{Type: event.TypeParticipantUpdated, ValidatePayload: validateUpdatePayload},
		{Type: event.TypeParticipantLeft, ValidatePayload: validateLeavePayload},
		{Type: event.TypeParticipantDisconnected, ValidatePayload: validateDisconnectPayload},
		{Type: event.TypeParticipantReconnected, ValidatePayload: validateReconnectPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateJoinPayload ensures join payloads match the participant join shape.
func validateJoinPayload(raw json.RawMessage) error {
	var payload JoinPayload
	return json.Unmarshal(raw, &payload)
}

// validateWaitlistedPayload ensures waitlisted payloads match the queue shape.
func validateWaitlistedPayload(raw json.RawMessage) error {
	var payload WaitlistedPayload
	return json.Unmarshal(raw, &payload)
}

// validatePromotedPayload ensures promoted payloads match the promotion shape.
func validatePromotedPayload(raw json.RawMessage) error {
	var payload PromotedPayload
	return json.Unmarshal(raw, &payload)
}

// validateUpdatePayload ensures update payloads match the participant update shape.
func validateUpdatePayload(raw json.RawMessage) error {
	var payload UpdatePayload
	return json.Unmarshal(raw, &payload)
}

// validateLeavePayload ensures leave payloads match the participant leave shape.
func validateLeavePayload(raw json.RawMessage) error {
	var payload LeavePayload
	return json.Unmarshal(raw, &payload)
}

// validateDisconnectPayload ensures disconnect payloads match the presence shape.
func validateDisconnectPayload(raw json.RawMessage) error {
	var payload DisconnectPayload
	return json.Unmarshal(raw, &payload)
}

// validateReconnectPayload ensures reconnect payloads match the presence shape.
func validateReconnectPayload(raw json.RawMessage) error {
	var payload ReconnectPayload
	return json.Unmarshal(raw, &payload)
}

// validateExpirePayload ensures expire payloads match the expiry shape.
func validateExpirePayload(raw json.RawMessage) error {
	var payload ExpirePayload
	return json.Unmarshal(raw, &payload)
}
