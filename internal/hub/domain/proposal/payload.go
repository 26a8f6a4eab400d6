package proposal

// CreatePayload captures the payload for proposal.create commands and
// proposal.created events. Eligible is stamped by the decider from the roster
// at creation time; late joiners do not vote on proposals already open.
type CreatePayload struct {
	ProposalID     string   `json:"proposal_id"`
	Topic          string   `json:"topic"`
	Options        []string `json:"options"`
	Mode           string   `json:"mode"`
	DeadlineUnixMS int64    `json:"deadline_unix_ms"`
	Eligible       []string `json:"eligible,omitempty"`
}

// VotePayload captures the payload for proposal.vote commands and
// proposal.vote_cast events. The voter is the envelope actor.
type VotePayload struct {
	ProposalID string `json:"proposal_id"`
	OptionID   string `json:"option_id"`
}

// ResolvePayload captures the payload for proposal.resolve and proposal.expire
// commands.
type ResolvePayload struct {
	ProposalID string `json:"proposal_id"`
}

// ResolvedPayload captures the payload for proposal.resolved events.
type ResolvedPayload struct {
	ProposalID    string         `json:"proposal_id"`
	Outcome       string         `json:"outcome"`
	WinningOption string         `json:"winning_option,omitempty"`
	Counts        map[string]int `json:"counts,omitempty"`
	Reason        string         `json:"reason"`
}
