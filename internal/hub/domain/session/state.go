package session

import (
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

// maxRecentMessages bounds the chat history kept in memory for late joiners.
const maxRecentMessages = 50

// World captures the shared narrative facts every participant sees.
type World struct {
	Location      string            `json:"location,omitempty"`
	Weather       string            `json:"weather,omitempty"`
	PartyPosition string            `json:"party_position,omitempty"`
	NPCs          []string          `json:"npcs,omitempty"`
	QuestFlags    map[string]string `json:"quest_flags,omitempty"`
}

// Message is one chat entry in the bounded recent history.
type Message struct {
	ID       string    `json:"id"`
	ActorID  string    `json:"actor_id"`
	Body     string    `json:"body"`
	PostedAt time.Time `json:"posted_at"`
}

// State captures session facts derived from session events.
//
// ActorRole is not folded from events: the projection resolves the acting
// participant's role from the roster before a command is decided.
type State struct {
	Exists          bool             `json:"exists"`
	SessionID       string           `json:"session_id,omitempty"`
	Name            string           `json:"name,omitempty"`
	Status          Status           `json:"status,omitempty"`
	Capacity        int              `json:"capacity,omitempty"`
	AllowSpectators bool             `json:"allow_spectators,omitempty"`
	World           World            `json:"world"`
	Messages        []Message        `json:"messages,omitempty"`
	ActorRole       participant.Role `json:"-"`
}

// HasNPC reports whether the world currently tracks the named NPC.
func (w World) HasNPC(name string) bool {
	for _, npc := range w.NPCs {
		if npc == name {
			return true
		}
	}
	return false
}
