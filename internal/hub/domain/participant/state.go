package participant

import (
	"sort"
	"time"
)

// Participant captures one seated member of a session.
type Participant struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	DisplayName    string    `json:"display_name"`
	CharacterID    string    `json:"character_id,omitempty"`
	Role           Role      `json:"role"`
	RequestedRole  Role      `json:"requested_role,omitempty"`
	Presence       Presence  `json:"presence"`
	DisconnectedAt time.Time `json:"disconnected_at,omitzero"`
	GraceUntil     time.Time `json:"grace_until,omitzero"`
	JoinedAt       time.Time `json:"joined_at"`
}

// WaitEntry captures one queued join request.
type WaitEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	DisplayName string    `json:"display_name"`
	CharacterID string    `json:"character_id,omitempty"`
	Position    int       `json:"position"`
	QueuedAt    time.Time `json:"queued_at"`
}

// State is the participant roster reduced from participant events.
//
// SessionExists, Capacity, AllowSpectators and SessionEnded mirror session
// facts and are assigned by the projection before a command is decided.
type State struct {
	SessionExists   bool                   `json:"session_exists"`
	Capacity        int                    `json:"capacity"`
	AllowSpectators bool                   `json:"allow_spectators"`
	SessionEnded    bool                   `json:"session_ended"`
	Participants    map[string]Participant `json:"participants,omitempty"`
	Waitlist        []WaitEntry            `json:"waitlist,omitempty"`
}

// NewState returns an empty roster.
func NewState() State {
	return State{Participants: map[string]Participant{}}
}

// PlayerCount counts seated players. GMs and spectators do not occupy
// player seats.
func (s State) PlayerCount() int {
	count := 0
	for _, p := range s.Participants {
		if p.Role == RolePlayer {
			count++
		}
	}
	return count
}

// ByUser finds the seated participant for a user id.
func (s State) ByUser(userID string) (Participant, bool) {
	if userID == "" {
		return Participant{}, false
	}
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Waitlisted reports whether a user already holds a queue position.
func (s State) Waitlisted(userID string) bool {
	if userID == "" {
		return false
	}
	for _, entry := range s.Waitlist {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}

// Role resolves a participant id to its role label.
func (s State) RoleOf(participantID string) Role {
	p, ok := s.Participants[participantID]
	if !ok {
		return RoleUnspecified
	}
	return p.Role
}

// GMSeated reports whether a game master already holds a seat.
func (s State) GMSeated() bool {
	for _, p := range s.Participants {
		if p.Role == RoleGM {
			return true
		}
	}
	return false
}

// GMID returns the seated game master's participant id. The join decider
// admits at most one GM, so the lookup is unambiguous.
func (s State) GMID() string {
	for id, p := range s.Participants {
		if p.Role == RoleGM {
			return id
		}
	}
	return ""
}

// EligibleVoters lists seated players and GMs sorted by participant id.
func (s State) EligibleVoters() []string {
	var ids []string
	for id, p := range s.Participants {
		if p.Role.CanWrite() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
