package resource

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

const (
	commandTypeCreate  command.Type = "resource.create"
	commandTypeRequest command.Type = "resource.request"
	commandTypeDecide  command.Type = "resource.decide"

	rejectionCodeResourceIDRequired         = "RESOURCE_ID_REQUIRED"
	rejectionCodeResourceAlreadyExists      = "RESOURCE_ALREADY_EXISTS"
	rejectionCodeResourceNotFound           = "RESOURCE_NOT_FOUND"
	rejectionCodeResourceKindInvalid        = "RESOURCE_KIND_INVALID"
	rejectionCodeResourceQuantityInvalid    = "RESOURCE_QUANTITY_INVALID"
	rejectionCodeTransactionIDRequired      = "TRANSACTION_ID_REQUIRED"
	rejectionCodeTransactionAlreadyExists   = "TRANSACTION_ALREADY_EXISTS"
	rejectionCodeTransactionNotFound        = "TRANSACTION_NOT_FOUND"
	rejectionCodeTransactionClosed          = "TRANSACTION_CLOSED"
	rejectionCodeTransactionDeltaInvalid    = "TRANSACTION_DELTA_INVALID"
	rejectionCodeTransactionReasonTooLong   = "TRANSACTION_REASON_TOO_LONG"
	rejectionCodeTransactionDecisionInvalid = "TRANSACTION_DECISION_INVALID"
	rejectionCodeInsufficientResource       = "INSUFFICIENT_RESOURCE"
	rejectionCodeUnauthorized               = "UNAUTHORIZED"

	maxQuantity    = int64(1_000_000_000)
	maxReasonRunes = 500
)

// Decide returns the decision for a resource command against current state.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeCreate {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		var payload CreatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		resourceID := strings.TrimSpace(payload.ResourceID)
		if resourceID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceIDRequired,
				Message: "resource id is required",
			})
		}
		if _, ok := state.Resources[resourceID]; ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceAlreadyExists,
				Message: "resource already exists",
			})
		}
		kind, ok := NormalizeKind(payload.Kind)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceKindInvalid,
				Message: "resource kind is invalid",
			})
		}
		if payload.Quantity < 0 || payload.Quantity > maxQuantity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceQuantityInvalid,
				Message: "resource quantity is out of range",
			})
		}

		normalized := CreatePayload{
			ResourceID:       resourceID,
			Kind:             string(kind),
			Quantity:         payload.Quantity,
			RequiresApproval: payload.RequiresApproval,
		}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeResourceCreated, "resource", resourceID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeRequest {
		if cmd.ActorType != command.ActorTypeSystem && !state.ActorRole.CanWrite() {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor may not request resource changes",
			})
		}
		var payload RequestPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		transactionID := strings.TrimSpace(payload.TransactionID)
		if transactionID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionIDRequired,
				Message: "transaction id is required",
			})
		}
		if _, ok := state.Transactions[transactionID]; ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionAlreadyExists,
				Message: "transaction already exists",
			})
		}
		resourceID := strings.TrimSpace(payload.ResourceID)
		res, ok := state.Resources[resourceID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceNotFound,
				Message: "resource does not exist",
			})
		}
		delta := payload.Delta
		if delta == 0 || delta < -maxQuantity || delta > maxQuantity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionDeltaInvalid,
				Message: "transaction delta is out of range",
			})
		}
		reason := strings.TrimSpace(payload.Reason)
		if utf8.RuneCountInString(reason) > maxReasonRunes {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionReasonTooLong,
				Message: "transaction reason is too long",
			})
		}

		normalized := RequestPayload{
			TransactionID: transactionID,
			ResourceID:    resourceID,
			Delta:         delta,
			Reason:        reason,
		}
		payloadJSON, _ := json.Marshal(normalized)
		requestedEvt := command.NewEvent(cmd, event.TypeResourceTransactionRequested, "transaction", transactionID, payloadJSON, now().UTC())

		// The game master approves their own requests; pools flagged as
		// approval-free settle immediately for everyone.
		auto := !res.RequiresApproval ||
			cmd.ActorType == command.ActorTypeSystem ||
			state.ActorRole == participant.RoleGM
		if !auto {
			return command.Accept(requestedEvt)
		}
		if res.Quantity+delta < 0 {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeInsufficientResource,
				Message: "resource cannot cover the requested change",
			})
		}
		if res.Quantity+delta > maxQuantity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceQuantityInvalid,
				Message: "resource quantity would exceed the cap",
			})
		}
		decided := DecidedPayload{
			TransactionID: transactionID,
			ResourceID:    resourceID,
			Status:        string(StatusApproved),
			AppliedDelta:  delta,
		}
		decidedJSON, _ := json.Marshal(decided)
		decidedEvt := command.NewEvent(cmd, event.TypeResourceTransactionDecided, "transaction", transactionID, decidedJSON, now().UTC())
		return command.Accept(requestedEvt, decidedEvt)
	}

	if cmd.Type == commandTypeDecide {
		if rejection, ok := requireGM(state, cmd); !ok {
			return command.Reject(rejection)
		}
		var payload DecidePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		transactionID := strings.TrimSpace(payload.TransactionID)
		tx, ok := state.Transactions[transactionID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionNotFound,
				Message: "transaction does not exist",
			})
		}
		if tx.Status != StatusPending {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionClosed,
				Message: "transaction is already decided",
			})
		}
		decision, ok := NormalizeDecision(payload.Decision)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTransactionDecisionInvalid,
				Message: "transaction decision is invalid",
			})
		}
		res, ok := state.Resources[tx.ResourceID]
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceNotFound,
				Message: "resource does not exist",
			})
		}

		var status Status
		var applied int64
		switch decision {
		case DecisionDeny:
			status = StatusDenied
		case DecisionApprove:
			applied = tx.Delta
			status = StatusApproved
			if res.Quantity+applied < 0 {
				if res.Quantity == 0 {
					return command.Reject(command.Rejection{
						Code:    rejectionCodeInsufficientResource,
						Message: "resource cannot cover the requested change",
					})
				}
				// Grant what the pool still holds.
				applied = -res.Quantity
				status = StatusPartial
			}
		case DecisionPartial:
			limit := tx.Delta
			if limit < 0 {
				limit = -limit
			}
			if payload.Quantity <= 0 || payload.Quantity > limit {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeTransactionDecisionInvalid,
					Message: "partial quantity must be within the requested amount",
				})
			}
			applied = payload.Quantity
			if tx.Delta < 0 {
				applied = -payload.Quantity
			}
			if applied < 0 && res.Quantity+applied < 0 {
				if res.Quantity == 0 {
					return command.Reject(command.Rejection{
						Code:    rejectionCodeInsufficientResource,
						Message: "resource cannot cover the requested change",
					})
				}
				applied = -res.Quantity
			}
			status = StatusPartial
		}
		if res.Quantity+applied > maxQuantity {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeResourceQuantityInvalid,
				Message: "resource quantity would exceed the cap",
			})
		}

		decided := DecidedPayload{
			TransactionID: transactionID,
			ResourceID:    tx.ResourceID,
			Status:        string(status),
			AppliedDelta:  applied,
		}
		payloadJSON, _ := json.Marshal(decided)
		evt := command.NewEvent(cmd, event.TypeResourceTransactionDecided, "transaction", transactionID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	return command.Decision{}
}

// requireGM allows system commands and the seated game master.
func requireGM(state State, cmd command.Command) (command.Rejection, bool) {
	if cmd.ActorType == command.ActorTypeSystem {
		return command.Rejection{}, true
	}
	if state.ActorRole == participant.RoleGM {
		return command.Rejection{}, true
	}
	return command.Rejection{
		Code:    rejectionCodeUnauthorized,
		Message: "only the game master may do this",
	}, false
}
