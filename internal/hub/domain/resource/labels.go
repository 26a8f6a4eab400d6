package resource

import "strings"

// Kind identifies what a shared resource pool holds.
type Kind string

const (
	KindUnspecified Kind = ""
	KindCurrency    Kind = "currency"
	KindItem        Kind = "item"
)

// NormalizeKind parses a resource kind label into a canonical value.
func NormalizeKind(value string) (Kind, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch Kind(trimmed) {
	case KindCurrency, KindItem:
		return Kind(trimmed), true
	default:
		return KindUnspecified, false
	}
}

// Status identifies where a transaction sits in its lifecycle. Every status
// but pending is terminal; decided transactions are never rewritten.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPartial  Status = "partial"
	StatusDenied   Status = "denied"
)

// NormalizeStatus parses a transaction status label into a canonical value.
func NormalizeStatus(value string) (Status, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch Status(trimmed) {
	case StatusPending, StatusApproved, StatusPartial, StatusDenied:
		return Status(trimmed), true
	default:
		return "", false
	}
}

// Decision identifies the game master's ruling on a pending transaction.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionPartial Decision = "partial"
	DecisionDeny    Decision = "deny"
)

// NormalizeDecision parses a ruling label into a canonical value.
func NormalizeDecision(value string) (Decision, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch Decision(trimmed) {
	case DecisionApprove, DecisionPartial, DecisionDeny:
		return Decision(trimmed), true
	default:
		return "", false
	}
}
