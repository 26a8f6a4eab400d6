package projection

import (
	"strings"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
)

// Decide routes a validated command to its domain decider over decide-ready
// state: the actor's role and the session facts each decider reads are
// stamped from the other slices before the call. Command families without a
// decider produce an empty decision, which the engine reports as unhandled.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	role := state.Roster.RoleOf(cmd.ActorID)

	switch commandFamily(cmd.Type) {
	case "session":
		s := state.Session
		s.ActorRole = role
		return session.Decide(s, cmd, now)
	case "participant":
		return participant.Decide(state.rosterDecideState(), cmd, now)
	case "document":
		s := state.Documents
		s.ActorRole = role
		return document.Decide(s, cmd, now)
	case "proposal":
		s := state.Proposals
		s.ActorRole = role
		s.EligibleVoters = state.Roster.EligibleVoters()
		s.GMID = state.Roster.GMID()
		return proposal.Decide(s, cmd, now)
	case "round":
		s := state.Rounds
		s.ActorRole = role
		return round.Decide(s, cmd, now)
	case "resource":
		s := state.Resources
		s.ActorRole = role
		return resource.Decide(s, cmd, now)
	}
	return command.Decision{}
}

// rosterDecideState mirrors the session facts the participant decider checks
// onto the roster slice.
func (s State) rosterDecideState() participant.State {
	roster := s.Roster
	roster.SessionExists = s.Session.Exists
	roster.Capacity = s.Session.Capacity
	roster.AllowSpectators = s.Session.AllowSpectators
	roster.SessionEnded = s.Session.Status == session.StatusEnded
	return roster
}

// commandFamily extracts the domain segment of a dotted command type.
func commandFamily(t command.Type) string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i > 0 {
		return s[:i]
	}
	return s
}
