package session

// CreatePayload captures the payload for session.create commands and session.created events.
type CreatePayload struct {
	SessionID       string `json:"session_id"`
	Name            string `json:"name"`
	Capacity        int    `json:"capacity"`
	AllowSpectators bool   `json:"allow_spectators"`
}

// StatusPayload captures the payload for session.set_status commands and
// session.status_changed events.
type StatusPayload struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StateChangePayload captures the payload for session.change_state commands
// and session.state_changed events. Key is only meaningful for quest flags.
type StateChangePayload struct {
	Kind  string `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// MessagePayload captures the payload for session.post_message commands and
// session.message_posted events.
type MessagePayload struct {
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

// RollPayload captures the payload for session.roll_dice commands. The seed is
// stamped by the service before dispatch so the decider stays deterministic.
type RollPayload struct {
	Spec string `json:"spec"`
	Seed int64  `json:"seed"`
}

// DiceRolledPayload captures the payload for session.dice_rolled events.
type DiceRolledPayload struct {
	Spec     string `json:"spec"`
	Seed     int64  `json:"seed"`
	Values   []int  `json:"values"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}
