package resource

import (
	"sort"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

// Resource is a shared pool of currency or items. Quantity never goes
// negative; the fold refuses any event that would take it below zero.
type Resource struct {
	ID               string `json:"id"`
	Kind             Kind   `json:"kind"`
	Quantity         int64  `json:"quantity"`
	RequiresApproval bool   `json:"requires_approval"`
}

// Transaction is one requested change to a resource pool. Decided
// transactions are retained as an immutable audit trail; AppliedDelta is the
// change that actually landed, which for a partial grant is smaller than the
// requested Delta.
type Transaction struct {
	ID           string    `json:"id"`
	ResourceID   string    `json:"resource_id"`
	RequesterID  string    `json:"requester_id"`
	Delta        int64     `json:"delta"`
	Reason       string    `json:"reason,omitempty"`
	Status       Status    `json:"status"`
	AppliedDelta int64     `json:"applied_delta"`
	RequestedAt  time.Time `json:"requested_at"`
	DecidedAt    time.Time `json:"decided_at,omitzero"`
	DecidedBy    string    `json:"decided_by,omitempty"`
}

// State captures resource facts derived from resource events. ActorRole is
// assigned by the projection before a command is decided.
type State struct {
	Resources    map[string]Resource    `json:"resources,omitempty"`
	Transactions map[string]Transaction `json:"transactions,omitempty"`
	ActorRole    participant.Role       `json:"-"`
}

// NewState returns an empty resource ledger.
func NewState() State {
	return State{
		Resources:    map[string]Resource{},
		Transactions: map[string]Transaction{},
	}
}

// Pending returns the ids of transactions awaiting a ruling for a resource,
// sorted for stable iteration.
func (s State) Pending(resourceID string) []string {
	var ids []string
	for id, tx := range s.Transactions {
		if tx.ResourceID == resourceID && tx.Status == StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
