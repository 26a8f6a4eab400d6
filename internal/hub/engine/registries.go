package engine

import (
	"fmt"
	"strings"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
)

// Registries bundles the command and event registries every write path shares.
type Registries struct {
	Commands *command.Registry
	Events   *event.Registry
}

// coreDomain describes one domain package's registration surface.
type coreDomain struct {
	name                string
	registerCommands    func(*command.Registry) error
	registerEvents      func(*event.Registry) error
	emittableEventTypes func() []event.Type
}

func coreDomains() []coreDomain {
	return []coreDomain{
		{
			name:                "session",
			registerCommands:    session.RegisterCommands,
			registerEvents:      session.RegisterEvents,
			emittableEventTypes: session.EmittableEventTypes,
		},
		{
			name:                "participant",
			registerCommands:    participant.RegisterCommands,
			registerEvents:      participant.RegisterEvents,
			emittableEventTypes: participant.EmittableEventTypes,
		},
		{
			name:                "document",
			registerCommands:    document.RegisterCommands,
			registerEvents:      document.RegisterEvents,
			emittableEventTypes: document.EmittableEventTypes,
		},
		{
			name:                "proposal",
			registerCommands:    proposal.RegisterCommands,
			registerEvents:      proposal.RegisterEvents,
			emittableEventTypes: proposal.EmittableEventTypes,
		},
		{
			name:                "round",
			registerCommands:    round.RegisterCommands,
			registerEvents:      round.RegisterEvents,
			emittableEventTypes: round.EmittableEventTypes,
		},
		{
			name:                "resource",
			registerCommands:    resource.RegisterCommands,
			registerEvents:      resource.RegisterEvents,
			emittableEventTypes: resource.EmittableEventTypes,
		},
	}
}

// BuildRegistries registers every hub domain and validates the result.
//
// This is the shared bootstrap point where all command/event contracts become a
// single validated registry consumed by the session lanes and the journal.
func BuildRegistries() (Registries, error) {
	commandRegistry := command.NewRegistry()
	eventRegistry := event.NewRegistry()

	for _, domain := range coreDomains() {
		if err := domain.registerCommands(commandRegistry); err != nil {
			return Registries{}, fmt.Errorf("register %s commands: %w", domain.name, err)
		}
		if err := domain.registerEvents(eventRegistry); err != nil {
			return Registries{}, fmt.Errorf("register %s events: %w", domain.name, err)
		}
	}

	if err := validateEmittableEventTypes(eventRegistry); err != nil {
		return Registries{}, err
	}

	return Registries{Commands: commandRegistry, Events: eventRegistry}, nil
}

// validateEmittableEventTypes confirms every type a decider can emit is
// registered, so a missing registration fails at startup instead of on the
// first affected command.
func validateEmittableEventTypes(events *event.Registry) error {
	var missing []string
	for _, domain := range coreDomains() {
		for _, t := range domain.emittableEventTypes() {
			if _, ok := events.Definition(t); !ok {
				missing = append(missing, string(t))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("emittable event types not in registry: %s", strings.Join(missing, ", "))
	}
	return nil
}
