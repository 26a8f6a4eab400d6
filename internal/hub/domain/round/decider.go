package round

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

const (
	commandTypeStart         command.Type = "round.start"
	commandTypeDeclareAction command.Type = "round.declare_action"
	commandTypeResolve       command.Type = "round.resolve"
	commandTypeExpire        command.Type = "round.expire"

	rejectionCodeRoundIDRequired         = "ROUND_ID_REQUIRED"
	rejectionCodeRoundActiveExists       = "ROUND_ACTIVE_EXISTS"
	rejectionCodeRoundNotActive          = "ROUND_NOT_ACTIVE"
	rejectionCodeRoundEntriesInvalid     = "ROUND_ENTRIES_INVALID"
	rejectionCodeRoundDeadlinePast       = "ROUND_DEADLINE_PAST"
	rejectionCodeRoundClosed             = "ROUND_CLOSED"
	rejectionCodeRoundCharacterUnknown   = "ROUND_CHARACTER_UNKNOWN"
	rejectionCodeRoundActionInvalid      = "ROUND_ACTION_INVALID"
	rejectionCodeRoundDeadlineNotReached = "ROUND_DEADLINE_NOT_REACHED"
	rejectionCodeUnauthorized            = "UNAUTHORIZED"

	maxEntries     = 32
	maxActionRunes = 500
	maxTargetRunes = 200
)

// Decide returns the decision for a round command against current state.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeStart {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		if state.Current.Active {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundActiveExists,
				Message: "a round is already collecting declarations",
			})
		}
		var payload StartPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		roundID := strings.TrimSpace(payload.RoundID)
		if roundID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundIDRequired,
				Message: "round id is required",
			})
		}
		if len(payload.Entries) == 0 || len(payload.Entries) > maxEntries {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundEntriesInvalid,
				Message: "round needs between one and thirty-two entries",
			})
		}
		entries := make([]Entry, 0, len(payload.Entries))
		seen := make(map[string]bool, len(payload.Entries))
		for _, entry := range payload.Entries {
			entry.CharacterID = strings.TrimSpace(entry.CharacterID)
			entry.ParticipantID = strings.TrimSpace(entry.ParticipantID)
			if entry.CharacterID == "" || seen[entry.CharacterID] {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeRoundEntriesInvalid,
					Message: "round entries must name distinct characters",
				})
			}
			seen[entry.CharacterID] = true
			entries = append(entries, entry)
		}
		deadline := time.UnixMilli(payload.DeadlineUnixMS).UTC()
		if !deadline.After(now().UTC()) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundDeadlinePast,
				Message: "round deadline must be in the future",
			})
		}

		normalized := StartPayload{
			RoundID:        roundID,
			Entries:        entries,
			DeadlineUnixMS: payload.DeadlineUnixMS,
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeRoundStarted, "round", roundID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeDeclareAction {
		var payload DeclarePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		roundID := strings.TrimSpace(payload.RoundID)
		if !state.Current.Active || state.Current.ID != roundID {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundNotActive,
				Message: "round is not collecting declarations",
			})
		}
		if !now().UTC().Before(state.Current.Deadline) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundClosed,
				Message: "round declaration window has closed",
			})
		}
		characterID := strings.TrimSpace(payload.CharacterID)
		entry, ok := state.Current.EntryFor(characterID)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundCharacterUnknown,
				Message: "character is not part of this round",
			})
		}
		if cmd.ActorType != command.ActorTypeSystem &&
			state.ActorRole != participant.RoleGM &&
			entry.ParticipantID != cmd.ActorID {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor does not control this character",
			})
		}
		action := strings.TrimSpace(payload.Action)
		if action == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundActionInvalid,
				Message: "declared action is required",
			})
		}
		if utf8.RuneCountInString(action) > maxActionRunes {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundActionInvalid,
				Message: "declared action is too long",
			})
		}
		target := strings.TrimSpace(payload.Target)
		if utf8.RuneCountInString(target) > maxTargetRunes {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundActionInvalid,
				Message: "declared target is too long",
			})
		}

		normalized := DeclaredPayload{
			RoundID:     roundID,
			CharacterID: characterID,
			Initiative:  entry.Initiative,
			Action:      action,
			Target:      target,
		}
		payloadJSON, _ := json.Marshal(normalized)
		declaredEvt := command.NewEvent(cmd, event.TypeRoundActionDeclared, "round", roundID, payloadJSON, now().UTC())

		declarations := make(map[string]Declaration, len(state.Current.Declarations)+1)
		for id, decl := range state.Current.Declarations {
			declarations[id] = decl
		}
		declarations[characterID] = Declaration{
			CharacterID: characterID,
			Action:      action,
			Target:      target,
			DeclaredBy:  cmd.ActorID,
			DeclaredAt:  now().UTC(),
		}
		if len(declarations) < len(state.Current.Entries) {
			return command.Accept(declaredEvt)
		}

		resolvedJSON, _ := json.Marshal(resolution(state.Current, declarations, ReasonCompletion))
		resolvedEvt := command.NewEvent(cmd, event.TypeRoundResolved, "round", roundID, resolvedJSON, now().UTC())
		return command.Accept(declaredEvt, resolvedEvt)
	}

	if cmd.Type == commandTypeResolve {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		var payload ResolvePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		roundID := strings.TrimSpace(payload.RoundID)
		if !state.Current.Active || state.Current.ID != roundID {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundNotActive,
				Message: "round is not collecting declarations",
			})
		}

		payloadJSON, _ := json.Marshal(resolution(state.Current, state.Current.Declarations, ReasonGM))
		evt := command.NewEvent(cmd, event.TypeRoundResolved, "round", roundID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeExpire {
		if cmd.ActorType != command.ActorTypeSystem {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "only the system may expire rounds",
			})
		}
		var payload ResolvePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		roundID := strings.TrimSpace(payload.RoundID)
		if !state.Current.Active || state.Current.ID != roundID {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundNotActive,
				Message: "round is not collecting declarations",
			})
		}
		if now().UTC().Before(state.Current.Deadline) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeRoundDeadlineNotReached,
				Message: "round deadline has not passed",
			})
		}

		payloadJSON, _ := json.Marshal(resolution(state.Current, state.Current.Declarations, ReasonDeadline))
		evt := command.NewEvent(cmd, event.TypeRoundResolved, "round", roundID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	return command.Decision{}
}

// resolution orders the declared characters by initiative descending, ties
// broken by character id, so replaying the same declaration set always
// yields the same result order. Characters that never declared are left out.
func resolution(current Round, declarations map[string]Declaration, reason string) ResolvedPayload {
	declared := make([]Entry, 0, len(declarations))
	for _, entry := range current.Entries {
		if _, ok := declarations[entry.CharacterID]; ok {
			declared = append(declared, entry)
		}
	}
	sort.Slice(declared, func(i, j int) bool {
		if declared[i].Initiative != declared[j].Initiative {
			return declared[i].Initiative > declared[j].Initiative
		}
		return declared[i].CharacterID < declared[j].CharacterID
	})

	results := make([]ActionResult, 0, len(declared))
	order := make([]string, 0, len(declared))
	for _, entry := range declared {
		decl := declarations[entry.CharacterID]
		results = append(results, ActionResult{
			CharacterID: entry.CharacterID,
			Initiative:  entry.Initiative,
			Action:      decl.Action,
			Target:      decl.Target,
		})
		order = append(order, entry.CharacterID)
	}
	return ResolvedPayload{
		RoundID:         current.ID,
		Reason:          reason,
		InitiativeOrder: order,
		Results:         results,
	}
}

// requireGM allows system commands and the seated game master.
func requireGM(state State, cmd command.Command) (command.Rejection, bool) {
	if cmd.ActorType == command.ActorTypeSystem {
		return command.Rejection{}, true
	}
	if state.ActorRole == participant.RoleGM {
		return command.Rejection{}, true
	}
	return command.Rejection{
		Code:    rejectionCodeUnauthorized,
		Message: "only the game master may do this",
	}, false
}
