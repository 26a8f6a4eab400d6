package event

import (
	"strings"
	"time"
)

// Type identifies the type of a session event.
type Type string

// Session lifecycle and shared-state events.
const (
	// TypeSessionCreated records the creation of a session.
	TypeSessionCreated Type = "session.created"
	// TypeSessionStatusChanged records a lifecycle status transition.
	TypeSessionStatusChanged Type = "session.status_changed"
	// TypeSessionStateChanged records a change to the shared world state.
	TypeSessionStateChanged Type = "session.state_changed"
	// TypeSessionMessagePosted records a chat message.
	TypeSessionMessagePosted Type = "session.message_posted"
	// TypeSessionDiceRolled records a resolved dice roll.
	TypeSessionDiceRolled Type = "session.dice_rolled"
)

// Participant events.
const (
	// TypeParticipantJoined records a participant joining a session.
	TypeParticipantJoined Type = "participant.joined"
	// TypeParticipantWaitlisted records a join deferred to the wait list.
	TypeParticipantWaitlisted Type = "participant.waitlisted"
	// TypeParticipantPromoted records a waitlisted participant taking a freed seat.
	TypeParticipantPromoted Type = "participant.promoted"
	// TypeParticipantUpdated records updates to a participant.
	TypeParticipantUpdated Type = "participant.updated"
	// TypeParticipantLeft records a participant leaving a session.
	TypeParticipantLeft Type = "participant.left"
	// TypeParticipantDisconnected records a dropped connection holding its seat.
	TypeParticipantDisconnected Type = "participant.disconnected"
	// TypeParticipantReconnected records a participant resuming a held seat.
	TypeParticipantReconnected Type = "participant.reconnected"
)

// Document events (collaborative editing).
const (
	// TypeDocumentCreated records the creation of a shared document.
	TypeDocumentCreated Type = "document.created"
	// TypeDocumentEdited records an accepted, transformed edit operation.
	TypeDocumentEdited Type = "document.edited"
)

// Proposal events (group decisions).
const (
	// TypeProposalCreated records the opening of a proposal.
	TypeProposalCreated Type = "proposal.created"
	// TypeProposalVoteCast records a vote within the voting window.
	TypeProposalVoteCast Type = "proposal.vote_cast"
	// TypeProposalResolved records the final outcome of a proposal.
	TypeProposalResolved Type = "proposal.resolved"
)

// Round events (structured turns).
const (
	// TypeRoundStarted records the start of an action round.
	TypeRoundStarted Type = "round.started"
	// TypeRoundActionDeclared records a declared action for a character.
	TypeRoundActionDeclared Type = "round.action_declared"
	// TypeRoundResolved records the ordered resolution of a round.
	TypeRoundResolved Type = "round.resolved"
)

// Resource events (shared pools).
const (
	// TypeResourceCreated records the creation of a shared resource pool.
	TypeResourceCreated Type = "resource.created"
	// TypeResourceTransactionRequested records a pending resource transaction.
	TypeResourceTransactionRequested Type = "resource.transaction_requested"
	// TypeResourceTransactionDecided records the GM decision on a transaction.
	TypeResourceTransactionDecided Type = "resource.transaction_decided"
)

// ActorType identifies who or what triggered an event.
type ActorType string

const (
	// ActorTypeSystem indicates the event was triggered by the system.
	ActorTypeSystem ActorType = "system"
	// ActorTypeParticipant indicates the event was triggered by a participant.
	ActorTypeParticipant ActorType = "participant"
	// ActorTypeGM indicates the event was triggered by the GM.
	ActorTypeGM ActorType = "gm"
)

// Event represents an immutable event in the session journal.
type Event struct {
	// SessionID is the session this event belongs to.
	SessionID string
	// Seq is the event sequence number within the session (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// RequestID correlates the event with the client request that caused it.
	RequestID string
	// ActorType identifies who triggered the event.
	ActorType ActorType
	// ActorID is the participant ID if ActorType is participant or GM.
	ActorID string
	// EntityType is the type of entity affected (document, proposal, etc.).
	EntityType string
	// EntityID is the ID of the entity affected.
	EntityID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "session", "document").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
