package participant

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the participant fold function.
func FoldHandledTypes() []event.Type {
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

// Fold applies an event to the roster. It returns an error if a recognized
// event carries a payload that cannot be unmarshalled.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeParticipantJoined:
		var payload JoinPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		role, _ := NormalizeRole(payload.Role)
		requested, _ := NormalizeRole(payload.RequestedRole)
		state.Participants = cloneParticipants(state.Participants)
		state.Participants[payload.ParticipantID] = Participant{
			ID:            payload.ParticipantID,
			UserID:        payload.UserID,
			DisplayName:   payload.DisplayName,
			CharacterID:   payload.CharacterID,
			Role:          role,
			RequestedRole: requested,
			Presence:      PresenceConnected,
			JoinedAt:      evt.Timestamp,
		}
	case event.TypeParticipantWaitlisted:
		var payload WaitlistedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		entries := append([]WaitEntry(nil), state.Waitlist...)
		entries = append(entries, WaitEntry{
			ID:          payload.ParticipantID,
			UserID:      payload.UserID,
			DisplayName: payload.DisplayName,
			CharacterID: payload.CharacterID,
			Position:    payload.Position,
			QueuedAt:    evt.Timestamp,
		})
		state.Waitlist = entries
	case event.TypeParticipantPromoted:
		var payload PromotedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		role, _ := NormalizeRole(payload.Role)
		if role == RoleUnspecified {
			role = RolePlayer
		}
		state.Waitlist = removeWaitEntry(state.Waitlist, payload.ParticipantID)
		state.Participants = cloneParticipants(state.Participants)
		state.Participants[payload.ParticipantID] = Participant{
			ID:          payload.ParticipantID,
			UserID:      payload.UserID,
			DisplayName: payload.DisplayName,
			CharacterID: payload.CharacterID,
			Role:        role,
			Presence:    PresenceConnected,
			JoinedAt:    evt.Timestamp,
		}
	case event.TypeParticipantUpdated:
		var payload UpdatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		seated, ok := state.Participants[payload.ParticipantID]
		if !ok {
			return state, nil
		}
		for key, value := range payload.Fields {
			switch key {
			case "display_name":
				seated.DisplayName = value
			case "character_id":
				seated.CharacterID = value
			}
		}
		state.Participants = cloneParticipants(state.Participants)
		state.Participants[payload.ParticipantID] = seated
	case event.TypeParticipantLeft:
		var payload LeavePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		if _, ok := state.Participants[payload.ParticipantID]; ok {
			state.Participants = cloneParticipants(state.Participants)
			delete(state.Participants, payload.ParticipantID)
		}
		state.Waitlist = removeWaitEntry(state.Waitlist, payload.ParticipantID)
	case event.TypeParticipantDisconnected:
		var payload DisconnectPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		seated, ok := state.Participants[payload.ParticipantID]
		if !ok {
			return state, nil
		}
		seated.Presence = PresenceDisconnected
		seated.DisconnectedAt = evt.Timestamp
		if payload.GraceUntilUnixMS > 0 {
			seated.GraceUntil = time.UnixMilli(payload.GraceUntilUnixMS).UTC()
		}
		state.Participants = cloneParticipants(state.Participants)
		state.Participants[payload.ParticipantID] = seated
	case event.TypeParticipantReconnected:
		var payload ReconnectPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("participant fold %s: %w", evt.Type, err)
		}
		seated, ok := state.Participants[payload.ParticipantID]
		if !ok {
			return state, nil
		}
		seated.Presence = PresenceConnected
		seated.DisconnectedAt = time.Time{}
		seated.GraceUntil = time.Time{}
		state.Participants = cloneParticipants(state.Participants)
		state.Participants[payload.ParticipantID] = seated
	}
	return state, nil
}

func cloneParticipants(participants map[string]Participant) map[string]Participant {
	cloned := make(map[string]Participant, len(participants)+1)
	for id, p := range participants {
		cloned[id] = p
	}
	return cloned
}

// removeWaitEntry drops the entry for a participant and renumbers the queue.
func removeWaitEntry(entries []WaitEntry, participantID string) []WaitEntry {
	index := waitlistIndex(entries, participantID)
	if index < 0 {
		return entries
	}
	remaining := make([]WaitEntry, 0, len(entries)-1)
	remaining = append(remaining, entries[:index]...)
	remaining = append(remaining, entries[index+1:]...)
	for i := range remaining {
		remaining[i].Position = i + 1
	}
	return remaining
}
