package resource

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the resource fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeResourceCreated,
		event.TypeResourceTransactionRequested,
		event.TypeResourceTransactionDecided,
	}
}

// Fold applies an event to the resource ledger. Beyond unmarshalling
// failures, it returns an error when a decided delta would drive a pool
// negative; that marks journal corruption and the caller halts the lane.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeResourceCreated:
		var payload CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("resource fold %s: %w", evt.Type, err)
		}
		kind, _ := NormalizeKind(payload.Kind)
		state.Resources = cloneResources(state.Resources)
		state.Resources[payload.ResourceID] = Resource{
			ID:               payload.ResourceID,
			Kind:             kind,
			Quantity:         payload.Quantity,
			RequiresApproval: payload.RequiresApproval,
		}
	case event.TypeResourceTransactionRequested:
		var payload RequestPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("resource fold %s: %w", evt.Type, err)
		}
		state.Transactions = cloneTransactions(state.Transactions)
		state.Transactions[payload.TransactionID] = Transaction{
			ID:          payload.TransactionID,
			ResourceID:  payload.ResourceID,
			RequesterID: evt.ActorID,
			Delta:       payload.Delta,
			Reason:      payload.Reason,
			Status:      StatusPending,
			RequestedAt: evt.Timestamp,
		}
	case event.TypeResourceTransactionDecided:
		var payload DecidedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("resource fold %s: %w", evt.Type, err)
		}
		tx, ok := state.Transactions[payload.TransactionID]
		if !ok {
			return state, fmt.Errorf("resource fold %s: transaction %s not found", evt.Type, payload.TransactionID)
		}
		status, ok := NormalizeStatus(payload.Status)
		if !ok || status == StatusPending {
			return state, fmt.Errorf("resource fold %s: status %q is invalid", evt.Type, payload.Status)
		}
		res, ok := state.Resources[tx.ResourceID]
		if !ok {
			return state, fmt.Errorf("resource fold %s: resource %s not found", evt.Type, tx.ResourceID)
		}
		if res.Quantity+payload.AppliedDelta < 0 {
			return state, fmt.Errorf("resource fold %s: resource %s quantity would go negative", evt.Type, tx.ResourceID)
		}

		res.Quantity += payload.AppliedDelta
		state.Resources = cloneResources(state.Resources)
		state.Resources[tx.ResourceID] = res

		tx.Status = status
		tx.AppliedDelta = payload.AppliedDelta
		tx.DecidedAt = evt.Timestamp
		tx.DecidedBy = evt.ActorID
		state.Transactions = cloneTransactions(state.Transactions)
		state.Transactions[payload.TransactionID] = tx
	}
	return state, nil
}

func cloneResources(resources map[string]Resource) map[string]Resource {
	cloned := make(map[string]Resource, len(resources)+1)
	for id, res := range resources {
		cloned[id] = res
	}
	return cloned
}

func cloneTransactions(transactions map[string]Transaction) map[string]Transaction {
	cloned := make(map[string]Transaction, len(transactions)+1)
	for id, tx := range transactions {
		cloned[id] = tx
	}
	return cloned
}
