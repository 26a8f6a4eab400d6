package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	"github.com/louisbranch/gathering.place/internal/hub/projection"
)

// pumpState carries what announcements need across events: display names for
// roster lines, topics for proposal outcomes (the resolved payload does not
// repeat the topic), and the previous lifecycle status so a resume reads
// differently from a first start. Only the pump goroutine touches it.
type pumpState struct {
	names  map[string]string
	topics map[string]string
	status session.Status
}

func newPumpState(stateJSON []byte) *pumpState {
	ps := &pumpState{names: map[string]string{}, topics: map[string]string{}}
	var state projection.State
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return ps
	}
	for participantID, p := range state.Roster.Participants {
		ps.names[participantID] = p.DisplayName
	}
	for proposalID, p := range state.Proposals.Proposals {
		ps.topics[proposalID] = p.Topic
	}
	ps.status = state.Session.Status
	return ps
}

func (c *wsConn) startPump(sub *engine.Subscription, afterSeq uint64, stateJSON []byte) {
	done := make(chan struct{})
	c.mu.Lock()
	c.sub = sub
	c.pumpDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.pump(sub, afterSeq, newPumpState(stateJSON))
	}()
}

// pump forwards session events to the connection until the subscription
// closes, the write side fails, or the connection's own seat is removed.
// Events at or below the snapshot watermark were already delivered inside
// the joined or resynced reply.
func (c *wsConn) pump(sub *engine.Subscription, afterSeq uint64, ps *pumpState) {
	var dropped uint64
	for evt := range sub.Events() {
		if evt.Seq <= afterSeq {
			continue
		}

		announcement := c.announcementFor(evt, ps)
		err := c.peer.writeFrame(wsFrame{
			Type:    "hub.event",
			Payload: mustJSON(eventEnvelope{Event: wireEventFrom(evt), Announcement: announcement}),
		})
		if err != nil {
			return
		}

		if evt.Type == event.TypeParticipantLeft && evt.EntityID == c.currentSeat() {
			c.clearSeat()
			sub.Close()
			return
		}

		if total := sub.Dropped(); total > dropped {
			delta := total - dropped
			dropped = total
			err := c.peer.writeFrame(wsFrame{
				Type:    "hub.gap",
				Payload: mustJSON(gapPayload{Dropped: delta}),
			})
			if err != nil {
				return
			}
		}
	}
}

func (c *wsConn) startWaitPump(sub *engine.Subscription, afterSeq uint64, sessionID, participantID string) {
	done := make(chan struct{})
	c.mu.Lock()
	c.sub = sub
	c.pumpDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.waitPump(sub, afterSeq, sessionID, participantID)
	}()
}

// waitPump consumes the feed silently until the connection's waitlist entry
// is promoted, then seats the connection, replays what it missed, and hands
// the subscription to the regular pump.
func (c *wsConn) waitPump(sub *engine.Subscription, afterSeq uint64, sessionID, participantID string) {
	for evt := range sub.Events() {
		if evt.Seq <= afterSeq {
			continue
		}
		if evt.Type != event.TypeParticipantPromoted || evt.EntityID != participantID {
			continue
		}

		role := participant.RolePlayer
		var promoted participant.PromotedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &promoted); err == nil {
			if normalized, ok := participant.NormalizeRole(promoted.Role); ok {
				role = normalized
			}
		}
		c.seat(sessionID, participantID, role)

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		resynced, err := c.d.engine.Resync(ctx, sessionID, evt.Seq)
		cancel()
		if err != nil {
			c.clearSeat()
			code, details := errorCode(err)
			_ = writeWSError(c.peer, c.locale(), "", code, details)
			sub.Close()
			return
		}

		snapshot := resynced.Snapshot
		_ = c.peer.writeFrame(wsFrame{
			Type: "hub.joined",
			Payload: mustJSON(joinedPayload{
				SessionID:     sessionID,
				ParticipantID: participantID,
				Role:          string(role),
				Seq:           snapshot.Seq,
				State:         json.RawMessage(snapshot.StateJSON),
				MissedEvents:  wireEvents(resynced.MissedEvents),
				ServerTime:    time.Now().UTC().Format(time.RFC3339),
			}),
		})
		c.welcome(snapshot.StateJSON)

		c.pump(sub, snapshot.Seq, newPumpState(snapshot.StateJSON))
		return
	}
}

// announcementFor renders the system line an event carries for this
// connection's locale, or nil when the event speaks for itself.
func (c *wsConn) announcementFor(evt event.Event, ps *pumpState) *announcePayload {
	ren := c.renderer()
	var body string

	switch evt.Type {
	case event.TypeParticipantJoined, event.TypeParticipantPromoted:
		var p participant.JoinPayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		ps.names[p.ParticipantID] = p.DisplayName
		body = ren.ParticipantJoined(p.DisplayName)
	case event.TypeParticipantUpdated:
		var p participant.UpdatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err == nil {
			if name, ok := p.Fields["display_name"]; ok && name != "" {
				ps.names[p.ParticipantID] = name
			}
		}
		return nil
	case event.TypeParticipantLeft:
		var p participant.LeavePayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		body = ren.ParticipantLeft(ps.displayName(p.ParticipantID))
		delete(ps.names, p.ParticipantID)
	case event.TypeParticipantDisconnected:
		var p participant.DisconnectPayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		body = ren.ParticipantDisconnected(ps.displayName(p.ParticipantID))
	case event.TypeParticipantReconnected:
		var p participant.ReconnectPayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		body = ren.ParticipantReconnected(ps.displayName(p.ParticipantID))
	case event.TypeProposalCreated:
		var p proposal.CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err == nil {
			ps.topics[p.ProposalID] = p.Topic
		}
		return nil
	case event.TypeProposalResolved:
		var p proposal.ResolvedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		topic := ps.topics[p.ProposalID]
		if topic == "" {
			topic = p.ProposalID
		}
		delete(ps.topics, p.ProposalID)
		switch proposal.Outcome(p.Outcome) {
		case proposal.OutcomeDecided:
			body = ren.ConsensusReached(topic, p.WinningOption)
		case proposal.OutcomeExpired:
			body = ren.ProposalExpired(topic)
		default:
			body = ren.ConsensusFailed(topic)
		}
	case event.TypeRoundStarted:
		body = ren.RoundStarted()
	case event.TypeRoundResolved:
		body = ren.RoundResolved()
	case event.TypeSessionStatusChanged:
		var p session.StatusPayload
		if err := json.Unmarshal(evt.PayloadJSON, &p); err != nil {
			return nil
		}
		previous := ps.status
		ps.status = session.Status(p.Status)
		switch ps.status {
		case session.StatusActive:
			if previous == session.StatusPaused {
				body = ren.SessionResumed()
			} else {
				body = ren.SessionStarted()
			}
		case session.StatusPaused:
			body = ren.SessionPaused()
		case session.StatusEnded:
			body = ren.SessionEnded()
		default:
			return nil
		}
	default:
		return nil
	}

	return &announcePayload{Label: ren.SystemLabel(), Body: body}
}

func (ps *pumpState) displayName(participantID string) string {
	if name := ps.names[participantID]; name != "" {
		return name
	}
	return participantID
}
