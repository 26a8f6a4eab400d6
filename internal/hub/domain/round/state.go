package round

import (
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

// Resolution reasons recorded on round.resolved events.
const (
	ReasonCompletion = "completion"
	ReasonDeadline   = "deadline"
	ReasonGM         = "gm"
)

// Entry is one character slot in a round. The game master fixes the
// initiative order when the round starts; ParticipantID names who may
// declare for the character.
type Entry struct {
	CharacterID   string `json:"character_id"`
	ParticipantID string `json:"participant_id,omitempty"`
	Initiative    int    `json:"initiative"`
}

// Declaration is a character's pending action for the current round. It is
// discarded at resolution; only the resolved event survives.
type Declaration struct {
	CharacterID string    `json:"character_id"`
	Action      string    `json:"action"`
	Target      string    `json:"target,omitempty"`
	DeclaredBy  string    `json:"declared_by"`
	DeclaredAt  time.Time `json:"declared_at"`
}

// Round is the declaration window currently collecting actions.
type Round struct {
	ID           string                 `json:"id"`
	Entries      []Entry                `json:"entries"`
	Deadline     time.Time              `json:"deadline"`
	Active       bool                   `json:"active"`
	Declarations map[string]Declaration `json:"declarations,omitempty"`
}

// EntryFor returns the entry for a character id.
func (r Round) EntryFor(characterID string) (Entry, bool) {
	for _, entry := range r.Entries {
		if entry.CharacterID == characterID {
			return entry, true
		}
	}
	return Entry{}, false
}

// State captures round facts derived from round events. At most one round
// collects declarations at a time; ActorRole is assigned by the projection.
type State struct {
	Current   Round            `json:"current"`
	ActorRole participant.Role `json:"-"`
}

// NewState returns a state with no round in progress.
func NewState() State {
	return State{}
}
