package session

import "strings"

// Status identifies the session lifecycle label.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPlanned     Status = "planned"
	StatusActive      Status = "active"
	StatusPaused      Status = "paused"
	StatusEnded       Status = "ended"
)

// NormalizeStatus parses a status label into a canonical value.
func NormalizeStatus(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StatusUnspecified, false
	}
	upper := strings.ToUpper(trimmed)
	switch upper {
	case "PLANNED", "SESSION_STATUS_PLANNED":
		return StatusPlanned, true
	case "ACTIVE", "SESSION_STATUS_ACTIVE":
		return StatusActive, true
	case "PAUSED", "SESSION_STATUS_PAUSED":
		return StatusPaused, true
	case "ENDED", "SESSION_STATUS_ENDED":
		return StatusEnded, true
	default:
		return StatusUnspecified, false
	}
}

// CanTransition reports whether a lifecycle move is allowed. Ended is
// terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPlanned:
		return to == StatusActive || to == StatusEnded
	case StatusActive:
		return to == StatusPaused || to == StatusEnded
	case StatusPaused:
		return to == StatusActive || to == StatusEnded
	default:
		return false
	}
}

// ChangeKind identifies the shared world mutation label.
type ChangeKind string

const (
	ChangeUnspecified      ChangeKind = ""
	ChangeLocationSet      ChangeKind = "location_set"
	ChangeWeatherSet       ChangeKind = "weather_set"
	ChangePartyPositionSet ChangeKind = "party_position_set"
	ChangeNPCAdded         ChangeKind = "npc_added"
	ChangeNPCRemoved       ChangeKind = "npc_removed"
	ChangeQuestFlagSet     ChangeKind = "quest_flag_set"
)

// NormalizeChangeKind parses a change kind label into a canonical value.
func NormalizeChangeKind(value string) (ChangeKind, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch ChangeKind(trimmed) {
	case ChangeLocationSet, ChangeWeatherSet, ChangePartyPositionSet,
		ChangeNPCAdded, ChangeNPCRemoved, ChangeQuestFlagSet:
		return ChangeKind(trimmed), true
	default:
		return ChangeUnspecified, false
	}
}

// RequiresGM reports whether only the game master may apply the change.
// Players may reposition the party; everything else is narration authority.
func (k ChangeKind) RequiresGM() bool {
	return k != ChangePartyPositionSet
}
