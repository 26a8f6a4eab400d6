package round

// StartPayload captures the payload for round.start commands and
// round.started events.
type StartPayload struct {
	RoundID        string  `json:"round_id"`
	Entries        []Entry `json:"entries"`
	DeadlineUnixMS int64   `json:"deadline_unix_ms"`
}

// DeclarePayload captures the payload for round.declare_action commands.
// The declarer is the envelope actor.
type DeclarePayload struct {
	RoundID     string `json:"round_id"`
	CharacterID string `json:"character_id"`
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
}

// DeclaredPayload captures the payload for round.action_declared events.
// Initiative is stamped by the decider from the round entry.
type DeclaredPayload struct {
	RoundID     string `json:"round_id"`
	CharacterID string `json:"character_id"`
	Initiative  int    `json:"initiative"`
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
}

// ResolvePayload captures the payload for round.resolve and round.expire
// commands.
type ResolvePayload struct {
	RoundID string `json:"round_id"`
}

// ActionResult is one character's resolved action in priority order.
type ActionResult struct {
	CharacterID string `json:"character_id"`
	Initiative  int    `json:"initiative"`
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
}

// ResolvedPayload captures the payload for round.resolved events. Results
// and the initiative order ship together in one event so clients never act
// on a partial resolution.
type ResolvedPayload struct {
	RoundID         string         `json:"round_id"`
	Reason          string         `json:"reason"`
	InitiativeOrder []string       `json:"initiative_order"`
	Results         []ActionResult `json:"results"`
}
