// Package errors provides structured error handling for the hub.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionNameEmpty             Code = "SESSION_NAME_EMPTY"
	CodeSessionEnded                 Code = "SESSION_ENDED"
	CodeSessionFull                  Code = "SESSION_FULL"
	CodeSessionInvalidStatusChange   Code = "SESSION_INVALID_STATUS_CHANGE"
	CodeSessionInvalidCapacity       Code = "SESSION_INVALID_CAPACITY"
	CodeSessionStatusDisallowsChange Code = "SESSION_STATUS_DISALLOWS_CHANGE"

	// Participant errors
	CodeParticipantEmptyDisplayName Code = "PARTICIPANT_EMPTY_DISPLAY_NAME"
	CodeParticipantInvalidRole      Code = "PARTICIPANT_INVALID_ROLE"
	CodeParticipantAlreadyJoined    Code = "PARTICIPANT_ALREADY_JOINED"
	CodeParticipantNotJoined        Code = "PARTICIPANT_NOT_JOINED"
	CodeUnauthorized                Code = "UNAUTHORIZED"

	// State change errors
	CodeInvalidChange Code = "INVALID_CHANGE"

	// Document errors
	CodeDocumentRangeInvalid Code = "DOCUMENT_RANGE_INVALID"
	CodeDocumentVersionAhead Code = "DOCUMENT_VERSION_AHEAD"

	// Proposal errors
	CodeProposalClosed        Code = "PROPOSAL_CLOSED"
	CodeProposalOptionInvalid Code = "PROPOSAL_OPTION_INVALID"
	CodeProposalDeadlinePast  Code = "PROPOSAL_DEADLINE_PAST"

	// Round errors
	CodeRoundClosed       Code = "ROUND_CLOSED"
	CodeRoundActiveExists Code = "ROUND_ACTIVE_EXISTS"
	CodeRoundNotActive    Code = "ROUND_NOT_ACTIVE"

	// Resource errors
	CodeResourceExists             Code = "RESOURCE_EXISTS"
	CodeTransactionClosed          Code = "TRANSACTION_CLOSED"
	CodeTransactionInvalidQuantity Code = "TRANSACTION_INVALID_QUANTITY"
	CodeInsufficientResource       Code = "INSUFFICIENT_RESOURCE"

	// Join grant errors
	CodeGrantInvalid  Code = "GRANT_INVALID"
	CodeGrantExpired  Code = "GRANT_EXPIRED"
	CodeGrantMismatch Code = "GRANT_MISMATCH"

	// Dice/mechanics errors
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"

	// Random/seed errors
	CodeSeedOutOfRange Code = "SEED_OUT_OF_RANGE"

	// Storage errors
	CodeNotFound          Code = "NOT_FOUND"
	CodeJournalGapTooWide Code = "JOURNAL_GAP_TOO_WIDE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionNameEmpty,
		CodeSessionInvalidCapacity,
		CodeParticipantEmptyDisplayName,
		CodeParticipantInvalidRole,
		CodeInvalidChange,
		CodeDocumentRangeInvalid,
		CodeProposalOptionInvalid,
		CodeProposalDeadlinePast,
		CodeTransactionInvalidQuantity,
		CodeGrantInvalid,
		CodeGrantMismatch,
		CodeDiceInvalidSpec,
		CodeSeedOutOfRange:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionEnded,
		CodeSessionInvalidStatusChange,
		CodeSessionStatusDisallowsChange,
		CodeParticipantNotJoined,
		CodeDocumentVersionAhead,
		CodeProposalClosed,
		CodeRoundClosed,
		CodeRoundActiveExists,
		CodeRoundNotActive,
		CodeTransactionClosed,
		CodeInsufficientResource,
		CodeGrantExpired,
		CodeJournalGapTooWide:
		return codes.FailedPrecondition

	// PermissionDenied - actor role disallows operation
	case CodeUnauthorized:
		return codes.PermissionDenied

	// ResourceExhausted - capacity limits
	case CodeSessionFull:
		return codes.ResourceExhausted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeParticipantAlreadyJoined,
		CodeResourceExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
