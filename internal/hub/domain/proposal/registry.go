package proposal

import (
	"encoding/json"
	"errors"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// RegisterCommands registers proposal commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: commandTypeCreate, ValidatePayload: validateCreatePayload},
		{Type: commandTypeVote, ValidatePayload: validateVotePayload},
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

// EmittableEventTypes returns all event types the proposal decider can emit.
func EmittableEventTypes() []event.Type {
	return []event.Type{
		event.TypeProposalCreated,
		event.TypeProposalVoteCast,
		event.TypeProposalResolved,
	}
}

// RegisterEvents registers proposal events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: event.TypeProposalCreated, ValidatePayload: validateCreatePayload},
		{Type: event.TypeProposalVoteCast, ValidatePayload: validateVotePayload},
		{Type: event.TypeProposalResolved, ValidatePayload: validateResolvedPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateCreatePayload ensures create payloads match the proposal shape.
func validateCreatePayload(raw json.RawMessage) error {
	var payload CreatePayload
	return json.Unmarshal(raw, &payload)
}

// validateVotePayload ensures vote payloads match the ballot shape.
func validateVotePayload(raw json.RawMessage) error {
	var payload VotePayload
	return json.Unmarshal(raw, &payload)
}

// validateResolvePayload ensures resolve payloads name a proposal.
func validateResolvePayload(raw json.RawMessage) error {
	var payload ResolvePayload
	return json.Unmarshal(raw, &payload)
}

// validateResolvedPayload ensures resolved payloads match the outcome shape.
func validateResolvedPayload(raw json.RawMessage) error {
	var payload ResolvedPayload
	return json.Unmarshal(raw, &payload)
}
