package session

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/dice"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

const (
	commandTypeCreate      command.Type = "session.create"
	commandTypeSetStatus   command.Type = "session.set_status"
	commandTypeChangeState command.Type = "session.change_state"
	commandTypePostMessage command.Type = "session.post_message"
	commandTypeRollDice    command.Type = "session.roll_dice"

	rejectionCodeSessionAlreadyCreated      = "SESSION_ALREADY_CREATED"
	rejectionCodeSessionNotFound            = "SESSION_NOT_FOUND"
	rejectionCodeSessionNameEmpty           = "SESSION_NAME_EMPTY"
	rejectionCodeSessionInvalidCapacity     = "SESSION_INVALID_CAPACITY"
	rejectionCodeSessionInvalidStatus       = "SESSION_INVALID_STATUS"
	rejectionCodeSessionInvalidStatusChange = "SESSION_INVALID_STATUS_CHANGE"
	rejectionCodeSessionEnded               = "SESSION_ENDED"
	rejectionCodeSessionStatusDisallows     = "SESSION_STATUS_DISALLOWS_CHANGE"
	rejectionCodeSessionInvalidChange       = "SESSION_INVALID_CHANGE"
	rejectionCodeMessageIDRequired          = "MESSAGE_ID_REQUIRED"
	rejectionCodeMessageEmpty               = "MESSAGE_EMPTY"
	rejectionCodeMessageTooLong             = "MESSAGE_TOO_LONG"
	rejectionCodeDiceInvalidSpec            = "DICE_INVALID_SPEC"
	rejectionCodeUnauthorized               = "UNAUTHORIZED"

	minCapacity = 1
	maxCapacity = 64

	maxMessageRunes = 2000
)

// Decide returns the decision for a session command against current state.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeCreate {
		if state.Exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionAlreadyCreated,
				Message: "session already created",
			})
		}
		var payload CreatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		sessionID := strings.TrimSpace(payload.SessionID)
		if sessionID == "" {
			sessionID = cmd.SessionID
		}
		name := strings.TrimSpace(payload.Name)
		if name == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionNameEmpty,
				Message: "session name is required",
			})
		}
		if payload.Capacity < minCapacity || payload.Capacity > maxCapacity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionInvalidCapacity,
				Message: "session capacity is out of range",
			})
		}

		normalized := CreatePayload{
			SessionID:       sessionID,
			Name:            name,
			Capacity:        payload.Capacity,
			AllowSpectators: payload.AllowSpectators,
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeSessionCreated, "session", sessionID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if !state.Exists {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeSessionNotFound,
			Message: "session does not exist",
		})
	}

	if cmd.Type == commandTypeSetStatus {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		var payload StatusPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		next, ok := NormalizeStatus(payload.Status)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionInvalidStatus,
				Message: "session status is invalid",
			})
		}
		if state.Status == StatusEnded {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionEnded,
				Message: "session has ended",
			})
		}
		if !CanTransition(state.Status, next) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionInvalidStatusChange,
				Message: "session status change is not allowed",
			})
		}

		normalized := StatusPayload{Status: string(next), Reason: strings.TrimSpace(payload.Reason)}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeSessionStatusChanged, "session", state.SessionID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeChangeState {
		if state.Status == StatusEnded {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionEnded,
				Message: "session has ended",
			})
		}
		if state.Status != StatusActive {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionStatusDisallows,
				Message: "session is not active",
			})
		}
		var payload StateChangePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		kind, ok := NormalizeChangeKind(payload.Kind)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionInvalidChange,
				Message: "change kind is invalid",
			})
		}
		if cmd.ActorType != command.ActorTypeSystem {
			if kind.RequiresGM() {
				if rejection, ok := requireGM(state, cmd); !ok {
					return command.Reject(rejection)
				}
			} else if !state.ActorRole.CanWrite() {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeUnauthorized,
					Message: "actor may not change shared state",
				})
			}
		}

		key := strings.TrimSpace(payload.Key)
		value := strings.TrimSpace(payload.Value)
		switch kind {
		case ChangeQuestFlagSet:
			if key == "" {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSessionInvalidChange,
					Message: "quest flag key is required",
				})
			}
		case ChangeNPCAdded:
			if value == "" {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSessionInvalidChange,
					Message: "change value is required",
				})
			}
			if state.World.HasNPC(value) {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSessionInvalidChange,
					Message: "npc is already present",
				})
			}
		case ChangeNPCRemoved:
			if !state.World.HasNPC(value) {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSessionInvalidChange,
					Message: "npc is not present",
				})
			}
		default:
			if value == "" {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSessionInvalidChange,
					Message: "change value is required",
				})
			}
		}

		normalized := StateChangePayload{Kind: string(kind), Key: key, Value: value}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeSessionStateChanged, "session", state.SessionID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypePostMessage {
		if state.Status == StatusEnded {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionEnded,
				Message: "session has ended",
			})
		}
		if cmd.ActorType != command.ActorTypeSystem && state.ActorRole == participant.RoleUnspecified {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor is not seated in this session",
			})
		}
		var payload MessagePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		messageID := strings.TrimSpace(payload.MessageID)
		if messageID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeMessageIDRequired,
				Message: "message id is required",
			})
		}
		body := strings.TrimSpace(payload.Body)
		if body == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeMessageEmpty,
				Message: "message body is required",
			})
		}
		if utf8.RuneCountInString(body) > maxMessageRunes {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeMessageTooLong,
				Message: "message body is too long",
			})
		}

		normalized := MessagePayload{MessageID: messageID, Body: body}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeSessionMessagePosted, "message", messageID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeRollDice {
		if state.Status != StatusActive {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionStatusDisallows,
				Message: "session is not active",
			})
		}
		if cmd.ActorType != command.ActorTypeSystem && !state.ActorRole.CanWrite() {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor may not roll dice",
			})
		}
		var payload RollPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		spec, err := dice.ParseSpec(payload.Spec)
		if err != nil {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDiceInvalidSpec,
				Message: "dice spec is invalid",
			})
		}
		result := dice.Roll(spec, payload.Seed)

		normalized := DiceRolledPayload{
			Spec:     spec.String(),
			Seed:     payload.Seed,
			Values:   result.Values,
			Modifier: result.Modifier,
			Total:    result.Total,
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeSessionDiceRolled, "session", state.SessionID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	return command.Decision{}
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
