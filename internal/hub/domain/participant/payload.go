package participant

// JoinPayload captures the payload for participant.join commands and participant.joined events.
type JoinPayload struct {
	ParticipantID     string `json:"participant_id"`
	UserID            string `json:"user_id,omitempty"`
	DisplayName       string `json:"display_name"`
	CharacterID       string `json:"character_id,omitempty"`
	Role              string `json:"role"`
	RequestedRole     string `json:"requested_role,omitempty"`
	SpectatorFallback bool   `json:"spectator_fallback,omitempty"`
}

// WaitlistedPayload captures the payload for participant.waitlisted events.
type WaitlistedPayload struct {
	ParticipantID string `json:"participant_id"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name"`
	CharacterID   string `json:"character_id,omitempty"`
	Position      int    `json:"position"`
}

// PromotedPayload captures the payload for participant.promoted events.
type PromotedPayload struct {
	ParticipantID string `json:"participant_id"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name"`
	CharacterID   string `json:"character_id,omitempty"`
	Role          string `json:"role"`
}

// UpdatePayload captures the payload for participant.update commands and participant.updated events.
type UpdatePayload struct {
	ParticipantID string            `json:"participant_id"`
	Fields        map[string]string `json:"fields"`
}

// LeavePayload captures the payload for participant.leave commands and participant.left events.
type LeavePayload struct {
	ParticipantID string `json:"participant_id"`
	Reason        string `json:"reason,omitempty"`
}

// DisconnectPayload captures the payload for participant.disconnect commands and
// participant.disconnected events.
type DisconnectPayload struct {
	ParticipantID    string `json:"participant_id"`
	GraceUntilUnixMS int64  `json:"grace_until_unix_ms"`
}

// ReconnectPayload captures the payload for participant.reconnect commands and
// participant.reconnected events.
type ReconnectPayload struct {
	ParticipantID string `json:"participant_id"`
}

// ExpirePayload captures the payload for participant.expire commands.
type ExpirePayload struct {
	ParticipantID string `json:"participant_id"`
}
