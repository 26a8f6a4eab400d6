package resource

// CreatePayload captures the payload for resource.create commands and
// resource.created events.
type CreatePayload struct {
	ResourceID       string `json:"resource_id"`
	Kind             string `json:"kind"`
	Quantity         int64  `json:"quantity"`
	RequiresApproval bool   `json:"requires_approval"`
}

// RequestPayload captures the payload for resource.request commands and
// resource.transaction_requested events. The requester is the envelope actor.
type RequestPayload struct {
	TransactionID string `json:"transaction_id"`
	ResourceID    string `json:"resource_id"`
	Delta         int64  `json:"delta"`
	Reason        string `json:"reason,omitempty"`
}

// DecidePayload captures the payload for resource.decide commands. Quantity
// only matters for partial rulings, where it names how much of the requested
// delta to grant.
type DecidePayload struct {
	TransactionID string `json:"transaction_id"`
	Decision      string `json:"decision"`
	Quantity      int64  `json:"quantity,omitempty"`
}

// DecidedPayload captures the payload for resource.transaction_decided
// events. AppliedDelta is the signed change the fold applies to the pool;
// it is zero for denials.
type DecidedPayload struct {
	TransactionID string `json:"transaction_id"`
	ResourceID    string `json:"resource_id"`
	Status        string `json:"status"`
	AppliedDelta  int64  `json:"applied_delta"`
}
