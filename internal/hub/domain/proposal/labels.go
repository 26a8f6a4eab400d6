package proposal

import "strings"

// Mode identifies how a proposal resolves.
type Mode string

const (
	ModeUnspecified Mode = ""
	ModeMajority    Mode = "majority"
	ModeUnanimous   Mode = "unanimous"
	ModeGMDecides   Mode = "gm_decides"
)

// NormalizeMode parses a voting mode label into a canonical value.
func NormalizeMode(value string) (Mode, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch Mode(trimmed) {
	case ModeMajority, ModeUnanimous, ModeGMDecides:
		return Mode(trimmed), true
	default:
		return ModeUnspecified, false
	}
}

// Outcome identifies the final result label of a proposal.
type Outcome string

const (
	// OutcomeDecided means a winning option was selected.
	OutcomeDecided Outcome = "decided"
	// OutcomeFailed means votes were cast but no consensus was reached.
	OutcomeFailed Outcome = "failed"
	// OutcomeExpired means the window closed without the votes the mode needs.
	OutcomeExpired Outcome = "expired"
)

// Resolution reasons recorded on proposal.resolved events.
const (
	ReasonCompletion = "completion"
	ReasonDeadline   = "deadline"
	ReasonGM         = "gm"
)
