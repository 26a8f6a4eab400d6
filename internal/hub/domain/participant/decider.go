package participant

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

const (
	commandTypeJoin       command.Type = "participant.join"
	commandTypeUpdate     command.Type = "participant.update"
	commandTypeLeave      command.Type = "participant.leave"
	commandTypeDisconnect command.Type = "participant.disconnect"
	commandTypeReconnect  command.Type = "participant.reconnect"
	commandTypeExpire     command.Type = "participant.expire"

	rejectionCodeSessionNotFound            = "SESSION_NOT_FOUND"
	rejectionCodeSessionEnded               = "SESSION_ENDED"
	rejectionCodeSpectatorsDisabled         = "SESSION_SPECTATORS_DISABLED"
	rejectionCodeGMSeatTaken                = "PARTICIPANT_GM_SEAT_TAKEN"
	rejectionCodeParticipantAlreadyJoined   = "PARTICIPANT_ALREADY_JOINED"
	rejectionCodeParticipantNotJoined       = "PARTICIPANT_NOT_JOINED"
	rejectionCodeParticipantIDRequired      = "PARTICIPANT_ID_REQUIRED"
	rejectionCodeParticipantNameEmpty       = "PARTICIPANT_NAME_EMPTY"
	rejectionCodeParticipantRoleInvalid     = "PARTICIPANT_INVALID_ROLE"
	rejectionCodeParticipantUpdateEmpty     = "PARTICIPANT_UPDATE_EMPTY"
	rejectionCodeParticipantFieldInvalid    = "PARTICIPANT_UPDATE_FIELD_INVALID"
	rejectionCodeParticipantNotDisconnected = "PARTICIPANT_NOT_DISCONNECTED"
	rejectionCodeParticipantGraceActive     = "PARTICIPANT_GRACE_ACTIVE"
	rejectionCodeParticipantAlreadyOnline   = "PARTICIPANT_ALREADY_CONNECTED"
	rejectionCodeUnauthorized               = "UNAUTHORIZED"

	leaveReasonReconnectWindowElapsed = "reconnect window elapsed"
)

// Decide returns the decision for a participant command against the roster.
//
// Join is the only command that can answer with an alternate outcome instead
// of a plain acceptance: when every player seat is taken the decision emits a
// waitlisted event (or a spectator seat when the joiner opted into fallback)
// rather than rejecting, so the caller still learns exactly where it stands.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeJoin {
		if !state.SessionExists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionNotFound,
				Message: "session does not exist",
			})
		}
		if state.SessionEnded {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeSessionEnded,
				Message: "session has ended",
			})
		}
		var payload JoinPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		displayName := strings.TrimSpace(payload.DisplayName)
		if displayName == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNameEmpty,
				Message: "display name is required",
			})
		}
		role, ok := NormalizeRole(payload.Role)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantRoleInvalid,
				Message: "participant role is required",
			})
		}
		userID := strings.TrimSpace(payload.UserID)
		characterID := strings.TrimSpace(payload.CharacterID)
		if _, exists := state.Participants[participantID]; exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantAlreadyJoined,
				Message: "participant already joined",
			})
		}
		if _, seated := state.ByUser(userID); seated || state.Waitlisted(userID) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantAlreadyJoined,
				Message: "user already holds a seat or queue position",
			})
		}

		switch role {
		case RoleGM:
			if state.GMSeated() {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeGMSeatTaken,
					Message: "session already has a game master",
				})
			}
		case RoleSpectator:
			if !state.AllowSpectators {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeSpectatorsDisabled,
					Message: "session does not allow spectators",
				})
			}
		case RolePlayer:
			if state.PlayerCount() >= state.Capacity {
				if payload.SpectatorFallback && state.AllowSpectators {
					normalized := JoinPayload{
						ParticipantID: participantID,
						UserID:        userID,
						DisplayName:   displayName,
						CharacterID:   characterID,
						Role:          string(RoleSpectator),
						RequestedRole: string(RolePlayer),
					}
					payloadJSON, _ := json.Marshal(normalized)
					evt := command.NewEvent(cmd, event.TypeParticipantJoined, "participant", participantID, payloadJSON, now().UTC())
					return command.Accept(evt)
				}
				normalized := WaitlistedPayload{
					ParticipantID: participantID,
					UserID:        userID,
					DisplayName:   displayName,
					CharacterID:   characterID,
					Position:      len(state.Waitlist) + 1,
				}
				payloadJSON, _ := json.Marshal(normalized)
				evt := command.NewEvent(cmd, event.TypeParticipantWaitlisted, "participant", participantID, payloadJSON, now().UTC())
				return command.Accept(evt)
			}
		}

		normalized := JoinPayload{
			ParticipantID: participantID,
			UserID:        userID,
			DisplayName:   displayName,
			CharacterID:   characterID,
			Role:          string(role),
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantJoined, "participant", participantID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeUpdate {
		var payload UpdatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		if _, exists := state.Participants[participantID]; !exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotJoined,
				Message: "participant not joined",
			})
		}
		if rejection, ok := authorizeActor(state, cmd, participantID); !ok {
			return command.Reject(rejection)
		}
		if len(payload.Fields) == 0 {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantUpdateEmpty,
				Message: "participant update requires fields",
			})
		}
		normalizedFields := make(map[string]string, len(payload.Fields))
		for key, value := range payload.Fields {
			switch key {
			case "display_name":
				trimmed := strings.TrimSpace(value)
				if trimmed == "" {
					return command.Reject(command.Rejection{
						Code:    rejectionCodeParticipantNameEmpty,
						Message: "display name is required",
					})
				}
				normalizedFields[key] = trimmed
			case "character_id":
				normalizedFields[key] = strings.TrimSpace(value)
			default:
				return command.Reject(command.Rejection{
					Code:    rejectionCodeParticipantFieldInvalid,
					Message: "participant update field is invalid",
				})
			}
		}

		normalized := UpdatePayload{ParticipantID: participantID, Fields: normalizedFields}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantUpdated, "participant", participantID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeLeave {
		var payload LeavePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		seated, isSeated := state.Participants[participantID]
		queued := waitlistIndex(state.Waitlist, participantID) >= 0
		if !isSeated && !queued {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotJoined,
				Message: "participant not joined",
			})
		}
		if rejection, ok := authorizeActor(state, cmd, participantID); !ok {
			return command.Reject(rejection)
		}
		reason := strings.TrimSpace(payload.Reason)

		normalized := LeavePayload{ParticipantID: participantID, Reason: reason}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantLeft, "participant", participantID, payloadJSON, now().UTC())

		if isSeated && seated.Role == RolePlayer {
			if promoted, ok := promotionEvent(state, cmd, now); ok {
				return command.Accept(evt, promoted)
			}
		}
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeDisconnect {
		var payload DisconnectPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		seated, exists := state.Participants[participantID]
		if !exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotJoined,
				Message: "participant not joined",
			})
		}
		if seated.Presence == PresenceDisconnected {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotDisconnected,
				Message: "participant already disconnected",
			})
		}

		normalized := DisconnectPayload{ParticipantID: participantID, GraceUntilUnixMS: payload.GraceUntilUnixMS}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantDisconnected, "participant", participantID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeReconnect {
		var payload ReconnectPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		seated, exists := state.Participants[participantID]
		if !exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotJoined,
				Message: "participant not joined",
			})
		}
		if seated.Presence != PresenceDisconnected {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantAlreadyOnline,
				Message: "participant already connected",
			})
		}

		normalized := ReconnectPayload{ParticipantID: participantID}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantReconnected, "participant", participantID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeExpire {
		var payload ExpirePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		participantID := strings.TrimSpace(payload.ParticipantID)
		if participantID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantIDRequired,
				Message: "participant id is required",
			})
		}
		seated, exists := state.Participants[participantID]
		if !exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotJoined,
				Message: "participant not joined",
			})
		}
		if seated.Presence != PresenceDisconnected {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantNotDisconnected,
				Message: "participant is not disconnected",
			})
		}
		if !seated.GraceUntil.IsZero() && now().UTC().Before(seated.GraceUntil) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeParticipantGraceActive,
				Message: "reconnect window is still open",
			})
		}

		normalized := LeavePayload{ParticipantID: participantID, Reason: leaveReasonReconnectWindowElapsed}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeParticipantLeft, "participant", participantID, payloadJSON, now().UTC())

		if seated.Role == RolePlayer {
			if promoted, ok := promotionEvent(state, cmd, now); ok {
				return command.Accept(evt, promoted)
			}
		}
		return command.Accept(evt)
	}

	return command.Decision{}
}

// authorizeActor allows system commands, the participant acting on itself, and
// the seated game master acting on anyone.
func authorizeActor(state State, cmd command.Command, participantID string) (command.Rejection, bool) {
	if cmd.ActorType == command.ActorTypeSystem {
		return command.Rejection{}, true
	}
	if cmd.ActorID == participantID {
		return command.Rejection{}, true
	}
	if state.RoleOf(cmd.ActorID) == RoleGM {
		return command.Rejection{}, true
	}
	return command.Rejection{
		Code:    rejectionCodeUnauthorized,
		Message: "actor may not manage this participant",
	}, false
}

// promotionEvent builds the promotion for the head of the wait list.
func promotionEvent(state State, cmd command.Command, now func() time.Time) (event.Event, bool) {
	if len(state.Waitlist) == 0 {
		return event.Event{}, false
	}
	head := state.Waitlist[0]
	payload := PromotedPayload{
		ParticipantID: head.ID,
		UserID:        head.UserID,
		DisplayName:   head.DisplayName,
		CharacterID:   head.CharacterID,
		Role:          string(RolePlayer),
	}
	payloadJSON, _ := json.Marshal(payload)
	return command.NewEvent(cmd, event.TypeParticipantPromoted, "participant", head.ID, payloadJSON, now().UTC()), true
}

func waitlistIndex(entries []WaitEntry, participantID string) int {
	for i, entry := range entries {
		if entry.ID == participantID {
			return i
		}
	}
	return -1
}
