package engine

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/projection"
)

// nextDeadline returns the earliest pending wall-clock deadline in state:
// open proposal windows, the active round's declaration window, and the
// reconnect grace of disconnected participants. The lane arms its timer to
// this instant after every applied event.
func nextDeadline(state projection.State) (time.Time, bool) {
	var next time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}

	for _, prop := range state.Proposals.Proposals {
		if prop.Open {
			consider(prop.Deadline)
		}
	}
	if state.Rounds.Current.Active {
		consider(state.Rounds.Current.Deadline)
	}
	for _, seated := range state.Roster.Participants {
		if seated.Presence == participant.PresenceDisconnected {
			consider(seated.GraceUntil)
		}
	}
	return next, !next.IsZero()
}

// dueCommands builds the system expire commands for every deadline that has
// passed. The deciders re-check the deadlines themselves, so a timer firing
// early only produces harmless rejections. Commands are ordered by type and
// entity so the journal sequence is reproducible.
func dueCommands(sessionID string, state projection.State, now time.Time) []command.Command {
	var cmds []command.Command

	for _, prop := range state.Proposals.Proposals {
		if !prop.Open || prop.Deadline.IsZero() || now.Before(prop.Deadline) {
			continue
		}
		payloadJSON, _ := json.Marshal(proposal.ResolvePayload{ProposalID: prop.ID})
		cmds = append(cmds, command.Command{
			SessionID:   sessionID,
			Type:        command.Type("proposal.expire"),
			ActorType:   command.ActorTypeSystem,
			EntityType:  "proposal",
			EntityID:    prop.ID,
			PayloadJSON: payloadJSON,
		})
	}

	current := state.Rounds.Current
	if current.Active && !current.Deadline.IsZero() && !now.Before(current.Deadline) {
		payloadJSON, _ := json.Marshal(round.ResolvePayload{RoundID: current.ID})
		cmds = append(cmds, command.Command{
			SessionID:   sessionID,
			Type:        command.Type("round.expire"),
			ActorType:   command.ActorTypeSystem,
			EntityType:  "round",
			EntityID:    current.ID,
			PayloadJSON: payloadJSON,
		})
	}

	for _, seated := range state.Roster.Participants {
		if seated.Presence != participant.PresenceDisconnected {
			continue
		}
		if seated.GraceUntil.IsZero() || now.Before(seated.GraceUntil) {
			continue
		}
		payloadJSON, _ := json.Marshal(participant.ExpirePayload{ParticipantID: seated.ID})
		cmds = append(cmds, command.Command{
			SessionID:   sessionID,
			Type:        command.Type("participant.expire"),
			ActorType:   command.ActorTypeSystem,
			EntityType:  "participant",
			EntityID:    seated.ID,
			PayloadJSON: payloadJSON,
		})
	}

	sort.Slice(cmds, func(i, j int) bool {
		if cmds[i].Type != cmds[j].Type {
			return cmds[i].Type < cmds[j].Type
		}
		return cmds[i].EntityID < cmds[j].EntityID
	})
	return cmds
}
