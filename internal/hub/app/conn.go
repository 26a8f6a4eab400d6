package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/websocket"
	"golang.org/x/text/language"

	"github.com/louisbranch/gathering.place/internal/hub/ai"
	"github.com/louisbranch/gathering.place/internal/hub/announce"
	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	"github.com/louisbranch/gathering.place/internal/hub/grant"
	"github.com/louisbranch/gathering.place/internal/hub/projection"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
	"github.com/louisbranch/gathering.place/internal/id"
	"github.com/louisbranch/gathering.place/internal/random"
)

// clientCommands lists the command types a connection may submit as raw
// frames once seated. Session creation, joins, presence, and deadline
// expiries never arrive this way; the transport owns those paths.
var clientCommands = map[string]bool{
	"session.set_status":   true,
	"session.change_state": true,
	"session.post_message": true,
	"session.roll_dice":    true,
	"participant.update":   true,
	"participant.leave":    true,
	"document.create":      true,
	"document.edit":        true,
	"proposal.create":      true,
	"proposal.vote":        true,
	"proposal.resolve":     true,
	"round.start":          true,
	"round.declare_action": true,
	"round.resolve":        true,
	"resource.create":      true,
	"resource.request":     true,
	"resource.decide":      true,
}

// wsConn tracks one websocket connection: its locale, the seat it holds, and
// the subscription pumping session events to it.
type wsConn struct {
	d    deps
	peer *wsPeer

	mu       sync.Mutex
	tag      language.Tag
	ren      announce.Renderer
	session  string
	seatID   string
	role     participant.Role
	sub      *engine.Subscription
	pumpDone chan struct{}
}

func (c *wsConn) setLocale(locale string) {
	tag := announce.Negotiate(locale)
	c.mu.Lock()
	c.tag = tag
	c.ren = announce.NewRenderer(tag)
	c.mu.Unlock()
}

func (c *wsConn) locale() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tag
}

func (c *wsConn) renderer() announce.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ren
}

func (c *wsConn) seat(sessionID, participantID string, role participant.Role) {
	c.mu.Lock()
	c.session = sessionID
	c.seatID = participantID
	c.role = role
	c.mu.Unlock()
}

func (c *wsConn) seatInfo() (string, string, participant.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.seatID, c.role
}

func (c *wsConn) currentSeat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seatID
}

func (c *wsConn) clearSeat() {
	c.mu.Lock()
	c.session = ""
	c.seatID = ""
	c.role = participant.RoleUnspecified
	c.mu.Unlock()
}

func (c *wsConn) writeError(requestID, code string, details map[string]string) {
	_ = writeWSError(c.peer, c.locale(), requestID, code, details)
}

func handleWSConn(conn *websocket.Conn, d deps) {
	defer func() {
		_ = conn.Close()
	}()

	d.recorder.ClientConnected()
	defer d.recorder.ClientDisconnected()

	decoder := json.NewDecoder(conn)
	c := &wsConn{d: d, peer: newWSPeer(json.NewEncoder(conn))}

	ctx := context.Background()
	acceptLanguage := ""
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		acceptLanguage = request.Header.Get("Accept-Language")
	}
	c.setLocale(acceptLanguage)
	defer c.finish()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			c.writeError("", "FRAME_INVALID", map[string]string{"reason": "invalid frame payload"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "payload too large"})
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			c.writeError(frame.RequestID, "RATE_LIMITED", nil)
			return
		}

		switch frame.Type {
		case "hub.create":
			c.handleCreate(ctx, frame)
		case "hub.join":
			c.handleJoin(ctx, frame)
		case "hub.leave":
			c.handleLeave(ctx, frame)
		case "hub.state":
			c.handleState(ctx, frame)
		case "hub.resync":
			c.handleResync(ctx, frame)
		case "hub.events":
			c.handleEvents(ctx, frame)
		case "hub.generate":
			c.handleGenerate(ctx, frame)
		default:
			if clientCommands[frame.Type] {
				c.handleCommand(ctx, frame)
				continue
			}
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "unsupported frame type"})
		}
	}
}

func (c *wsConn) handleCreate(ctx context.Context, frame wsFrame) {
	var payload createPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid create payload"})
		return
	}
	if locale := strings.TrimSpace(payload.Locale); locale != "" {
		c.setLocale(locale)
	}

	sessionID := strings.TrimSpace(payload.SessionID)
	if c.d.grants.Enforced() {
		if sessionID == "" {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "session_id is required"})
			return
		}
		claims, err := grant.Validate(payload.Grant, sessionID, c.d.grants)
		if err != nil {
			code, details := errorCode(err)
			c.writeError(frame.RequestID, code, details)
			return
		}
		if claims.Role != participant.RoleGM {
			c.writeError(frame.RequestID, "UNAUTHORIZED", map[string]string{"reason": "session creation needs a game master grant"})
			return
		}
	} else if sessionID == "" {
		generated, err := id.NewID()
		if err != nil {
			c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": err.Error()})
			return
		}
		sessionID = generated
	}

	result, err := c.submit(ctx, command.Command{
		SessionID: sessionID,
		Type:      "session.create",
		ActorType: command.ActorTypeSystem,
		RequestID: frame.RequestID,
		PayloadJSON: mustJSON(session.CreatePayload{
			SessionID:       sessionID,
			Name:            payload.Name,
			Capacity:        payload.Capacity,
			AllowSpectators: payload.AllowSpectators,
		}),
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.created",
		RequestID: frame.RequestID,
		Payload: mustJSON(createdPayload{
			SessionID:  sessionID,
			Seq:        result.Events[len(result.Events)-1].Seq,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		}),
	})
}

func (c *wsConn) handleJoin(ctx context.Context, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid join payload"})
		return
	}
	if locale := strings.TrimSpace(payload.Locale); locale != "" {
		c.setLocale(locale)
	}

	if _, seatID, _ := c.seatInfo(); seatID != "" {
		c.writeError(frame.RequestID, "PARTICIPANT_ALREADY_JOINED", map[string]string{"reason": "connection already holds a seat"})
		return
	}

	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "session_id is required"})
		return
	}

	userID := strings.TrimSpace(payload.UserID)
	characterID := strings.TrimSpace(payload.CharacterID)
	requestedRole := strings.TrimSpace(payload.Role)
	if c.d.grants.Enforced() {
		claims, err := grant.Validate(payload.Grant, sessionID, c.d.grants)
		if err != nil {
			code, details := errorCode(err)
			c.writeError(frame.RequestID, code, details)
			return
		}
		userID = claims.UserID
		characterID = claims.CharacterID
		requestedRole = string(claims.Role)
	}

	snapshot, err := c.d.engine.SessionState(ctx, sessionID)
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	var state projection.State
	if err := json.Unmarshal(snapshot.StateJSON, &state); err != nil {
		c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": "decode session state"})
		return
	}

	participantID := strings.TrimSpace(payload.ParticipantID)
	if existing, ok := state.Roster.Participants[participantID]; ok && participantID != "" {
		if c.d.grants.Enforced() && existing.UserID != userID {
			c.writeError(frame.RequestID, "GRANT_MISMATCH", map[string]string{"reason": "seat belongs to another user"})
			return
		}
		c.resume(ctx, frame, sessionID, existing, payload.LastSeenSeq)
		return
	}

	if participantID == "" {
		generated, err := id.NewID()
		if err != nil {
			c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": err.Error()})
			return
		}
		participantID = generated
	}

	requested, _ := participant.NormalizeRole(requestedRole)
	result, err := c.submit(ctx, command.Command{
		SessionID: sessionID,
		Type:      "participant.join",
		ActorType: actorTypeFor(requested),
		ActorID:   participantID,
		RequestID: frame.RequestID,
		PayloadJSON: mustJSON(participant.JoinPayload{
			ParticipantID:     participantID,
			UserID:            userID,
			DisplayName:       payload.DisplayName,
			CharacterID:       characterID,
			Role:              requestedRole,
			SpectatorFallback: payload.SpectatorFallback,
		}),
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	evt := result.Events[0]
	if evt.Type == event.TypeParticipantWaitlisted {
		c.queued(ctx, frame, sessionID, participantID, evt)
		return
	}

	var joined participant.JoinPayload
	if err := json.Unmarshal(evt.PayloadJSON, &joined); err != nil {
		c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": "decode join event"})
		return
	}
	reason := ""
	if joined.RequestedRole != "" && joined.RequestedRole != joined.Role {
		reason = "session full"
	}
	seated, _ := participant.NormalizeRole(joined.Role)
	c.seat(sessionID, participantID, seated)
	c.attach(ctx, frame, sessionID, participantID, joined.Role, joined.RequestedRole, reason, 0)
}

// resume reclaims a held seat after a reconnect within the grace window.
func (c *wsConn) resume(ctx context.Context, frame wsFrame, sessionID string, seat participant.Participant, lastSeen uint64) {
	result, err := c.submit(ctx, command.Command{
		SessionID:   sessionID,
		Type:        "participant.reconnect",
		ActorType:   actorTypeFor(seat.Role),
		ActorID:     seat.ID,
		RequestID:   frame.RequestID,
		PayloadJSON: mustJSON(participant.ReconnectPayload{ParticipantID: seat.ID}),
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	c.seat(sessionID, seat.ID, seat.Role)
	c.attach(ctx, frame, sessionID, seat.ID, string(seat.Role), "", "", lastSeen)
}

// queued parks a waitlisted connection on the session feed so a later
// promotion can seat it without a second join round trip.
func (c *wsConn) queued(ctx context.Context, frame wsFrame, sessionID, participantID string, evt event.Event) {
	var waitlisted participant.WaitlistedPayload
	if err := json.Unmarshal(evt.PayloadJSON, &waitlisted); err != nil {
		c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": "decode waitlist event"})
		return
	}

	sub, err := c.d.engine.Subscribe(ctx, sessionID)
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}

	// The promotion may land before the subscription registers. Read the
	// state once afterwards: if the seat is already ours, skip the queue.
	snapshot, err := c.d.engine.SessionState(ctx, sessionID)
	if err != nil {
		sub.Close()
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	var state projection.State
	if err := json.Unmarshal(snapshot.StateJSON, &state); err != nil {
		sub.Close()
		c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": "decode session state"})
		return
	}
	if seated, ok := state.Roster.Participants[participantID]; ok {
		sub.Close()
		c.seat(sessionID, participantID, seated.Role)
		c.attach(ctx, frame, sessionID, participantID, string(seated.Role), "", "", 0)
		return
	}

	c.startWaitPump(sub, snapshot.Seq, sessionID, participantID)
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.waitlisted",
		RequestID: frame.RequestID,
		Payload: mustJSON(waitlistedPayload{
			SessionID:       sessionID,
			ParticipantID:   participantID,
			QueuePosition:   waitlisted.Position,
			EstimatedWaitMS: (time.Duration(waitlisted.Position) * estimatedWaitPerSeat).Milliseconds(),
		}),
	})
}

// attach subscribes the connection to the session feed, starts the pump, and
// sends the joined reply plus the localized welcome line. A positive lastSeen
// resyncs the gap; a fresh join takes the snapshot alone. Subscribing before
// the snapshot read means every event past its watermark reaches the pump.
func (c *wsConn) attach(ctx context.Context, frame wsFrame, sessionID, participantID, role, requestedRole, reason string, lastSeen uint64) {
	sub, err := c.d.engine.Subscribe(ctx, sessionID)
	if err != nil {
		c.clearSeat()
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}

	var snapshot engine.StateSnapshot
	var missed []event.Event
	if lastSeen > 0 {
		resynced, err := c.d.engine.Resync(ctx, sessionID, lastSeen)
		if err != nil {
			sub.Close()
			c.clearSeat()
			code, details := errorCode(err)
			c.writeError(frame.RequestID, code, details)
			return
		}
		snapshot = resynced.Snapshot
		missed = resynced.MissedEvents
	} else {
		snapshot, err = c.d.engine.SessionState(ctx, sessionID)
		if err != nil {
			sub.Close()
			c.clearSeat()
			code, details := errorCode(err)
			c.writeError(frame.RequestID, code, details)
			return
		}
	}

	c.startPump(sub, snapshot.Seq, snapshot.StateJSON)

	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			SessionID:     sessionID,
			ParticipantID: participantID,
			Role:          role,
			RequestedRole: requestedRole,
			Reason:        reason,
			Seq:           snapshot.Seq,
			State:         json.RawMessage(snapshot.StateJSON),
			MissedEvents:  wireEvents(missed),
			ServerTime:    time.Now().UTC().Format(time.RFC3339),
		}),
	})
	c.welcome(snapshot.StateJSON)
}

// welcome sends the localized greeting for the session the connection joined.
func (c *wsConn) welcome(stateJSON []byte) {
	var state projection.State
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return
	}
	ren := c.renderer()
	_ = c.peer.writeFrame(wsFrame{
		Type: "hub.announce",
		Payload: mustJSON(announcePayload{
			Label: ren.SystemLabel(),
			Body:  ren.Welcome(state.Session.Name),
		}),
	})
}

func (c *wsConn) handleLeave(ctx context.Context, frame wsFrame) {
	sessionID, seatID, role := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}
	var payload leavePayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid leave payload"})
			return
		}
	}

	result, err := c.submit(ctx, command.Command{
		SessionID:   sessionID,
		Type:        "participant.leave",
		ActorType:   actorTypeFor(role),
		ActorID:     seatID,
		RequestID:   frame.RequestID,
		PayloadJSON: mustJSON(participant.LeavePayload{ParticipantID: seatID, Reason: payload.Reason}),
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	c.detach()
	c.clearSeat()
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.left",
		RequestID: frame.RequestID,
		Payload:   mustJSON(leftPayload{SessionID: sessionID, ParticipantID: seatID}),
	})
}

func (c *wsConn) handleState(ctx context.Context, frame wsFrame) {
	sessionID, seatID, _ := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}
	snapshot, err := c.d.engine.SessionState(ctx, sessionID)
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.state",
		RequestID: frame.RequestID,
		Payload: mustJSON(statePayload{
			SessionID: sessionID,
			Seq:       snapshot.Seq,
			State:     json.RawMessage(snapshot.StateJSON),
		}),
	})
}

func (c *wsConn) handleResync(ctx context.Context, frame wsFrame) {
	sessionID, seatID, _ := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}
	var payload resyncPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid resync payload"})
			return
		}
	}
	resynced, err := c.d.engine.Resync(ctx, sessionID, payload.LastSeenSeq)
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.resynced",
		RequestID: frame.RequestID,
		Payload: mustJSON(resyncedPayload{
			SessionID:    sessionID,
			Seq:          resynced.Snapshot.Seq,
			State:        json.RawMessage(resynced.Snapshot.StateJSON),
			MissedEvents: wireEvents(resynced.MissedEvents),
		}),
	})
}

func (c *wsConn) handleEvents(ctx context.Context, frame wsFrame) {
	sessionID, seatID, _ := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}
	var payload eventsPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid events payload"})
			return
		}
	}
	events, err := c.d.engine.ListEvents(ctx, engine.HistoryQuery{
		SessionID: sessionID,
		AfterSeq:  payload.AfterSeq,
		Limit:     payload.Limit,
		Filter:    payload.Filter,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFilterUnsupported):
			c.writeError(frame.RequestID, "FILTER_UNSUPPORTED", nil)
		case errors.Is(err, engine.ErrSessionUnknown), errors.Is(err, engine.ErrEngineClosed):
			code, details := errorCode(err)
			c.writeError(frame.RequestID, code, details)
		default:
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": err.Error()})
		}
		return
	}
	wire := wireEvents(events)
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.events",
		RequestID: frame.RequestID,
		Payload: mustJSON(eventsResultPayload{
			SessionID: sessionID,
			Events:    wire,
			Count:     len(wire),
		}),
	})
}

func (c *wsConn) handleGenerate(ctx context.Context, frame wsFrame) {
	sessionID, seatID, role := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}
	if role != participant.RoleGM {
		c.writeError(frame.RequestID, "UNAUTHORIZED", map[string]string{"reason": "only the game master may generate content"})
		return
	}
	if c.d.provider == nil {
		c.writeError(frame.RequestID, "GENERATION_UNAVAILABLE", nil)
		return
	}
	var payload generatePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid generate payload"})
		return
	}
	kind, err := ai.NormalizeKind(payload.Kind)
	if err != nil {
		c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": err.Error()})
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, c.d.generateTimeout)
	content, err := c.d.provider.Generate(genCtx, ai.Request{
		Kind:    kind,
		Prompt:  payload.Prompt,
		Context: payload.Context,
	})
	cancel()
	if err != nil {
		c.writeError(frame.RequestID, "GENERATION_FAILED", map[string]string{"reason": err.Error()})
		return
	}
	content = clampRunes(content, maxGeneratedBodyRunes)

	messageID, err := id.NewID()
	if err != nil {
		c.writeError(frame.RequestID, "UNKNOWN", map[string]string{"reason": err.Error()})
		return
	}

	result, err := c.submitGenerated(ctx, command.Command{
		SessionID:   sessionID,
		Type:        "session.post_message",
		RequestID:   frame.RequestID,
		PayloadJSON: mustJSON(session.MessagePayload{MessageID: messageID, Body: content}),
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.generated",
		RequestID: frame.RequestID,
		Payload: mustJSON(generatedPayload{
			SessionID: sessionID,
			MessageID: messageID,
			Seq:       result.Events[len(result.Events)-1].Seq,
			Content:   content,
		}),
	})
}

func (c *wsConn) handleCommand(ctx context.Context, frame wsFrame) {
	sessionID, seatID, role := c.seatInfo()
	if seatID == "" {
		c.writeError(frame.RequestID, "PARTICIPANT_NOT_JOINED", nil)
		return
	}

	payloadJSON := []byte(frame.Payload)
	if len(payloadJSON) == 0 {
		payloadJSON = []byte("{}")
	}
	if frame.Type == "session.roll_dice" {
		stamped, err := stampRollSeed(payloadJSON)
		if err != nil {
			c.writeError(frame.RequestID, "FRAME_INVALID", map[string]string{"reason": "invalid roll payload"})
			return
		}
		payloadJSON = stamped
	}

	result, err := c.submit(ctx, command.Command{
		SessionID:   sessionID,
		Type:        command.Type(frame.Type),
		ActorType:   actorTypeFor(role),
		ActorID:     seatID,
		RequestID:   frame.RequestID,
		PayloadJSON: payloadJSON,
	})
	if err != nil {
		code, details := errorCode(err)
		c.writeError(frame.RequestID, code, details)
		return
	}
	if c.rejected(frame.RequestID, result) {
		return
	}

	ack := ackResult{Status: "ok", Events: len(result.Events)}
	if len(result.Events) > 0 {
		ack.Seq = result.Events[len(result.Events)-1].Seq
	}
	_ = c.peer.writeFrame(wsFrame{
		Type:      "hub.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ack}),
	})
}

func (c *wsConn) submit(ctx context.Context, cmd command.Command) (engine.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.d.engine.Submit(ctx, cmd)
}

func (c *wsConn) submitGenerated(ctx context.Context, cmd command.Command) (engine.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.d.engine.SubmitGenerated(ctx, cmd)
}

// rejected writes the first rejection as an error frame and reports whether
// the result carried any.
func (c *wsConn) rejected(requestID string, result engine.Result) bool {
	if len(result.Rejections) == 0 {
		return false
	}
	rejection := result.Rejections[0]
	c.writeError(requestID, rejection.Code, map[string]string{"reason": rejection.Message})
	return true
}

// detach stops the event pump and waits for it to finish.
func (c *wsConn) detach() {
	c.mu.Lock()
	sub := c.sub
	done := c.pumpDone
	c.sub = nil
	c.pumpDone = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
}

// finish tears down the pump and releases the seat with a reconnect grace
// window. The request context is already canceled once the socket drops, so
// the disconnect command gets a fresh one.
func (c *wsConn) finish() {
	c.detach()

	sessionID, seatID, _ := c.seatInfo()
	if seatID == "" {
		return
	}
	c.clearSeat()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	graceUntil := time.Now().Add(c.d.reconnectGrace)
	_, err := c.d.engine.Submit(ctx, command.Command{
		SessionID: sessionID,
		Type:      "participant.disconnect",
		ActorType: command.ActorTypeSystem,
		PayloadJSON: mustJSON(participant.DisconnectPayload{
			ParticipantID:    seatID,
			GraceUntilUnixMS: graceUntil.UnixMilli(),
		}),
	})
	if err != nil {
		log.Printf("hub: disconnect %s from session %s: %v", seatID, sessionID, err)
	}
}

func actorTypeFor(role participant.Role) command.ActorType {
	if role == participant.RoleGM {
		return command.ActorTypeGM
	}
	return command.ActorTypeParticipant
}

// stampRollSeed overwrites any client-supplied seed so a player cannot pick
// a favorable roll. The decider stays deterministic given the stamped payload.
func stampRollSeed(payloadJSON []byte) ([]byte, error) {
	var payload session.RollPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, err
	}
	seed, err := random.NewSeed()
	if err != nil {
		return nil, err
	}
	payload.Seed = seed
	return json.Marshal(payload)
}

func clampRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
