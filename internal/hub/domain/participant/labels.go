package participant

import "strings"

// Role identifies the participant role label.
type Role string

const (
	RoleUnspecified Role = ""
	RoleGM          Role = "gm"
	RolePlayer      Role = "player"
	RoleSpectator   Role = "spectator"
)

// Presence identifies the participant connection label.
type Presence string

const (
	PresenceConnected    Presence = "connected"
	PresenceDisconnected Presence = "disconnected"
)

// NormalizeRole parses a role label into a canonical value.
func NormalizeRole(value string) (Role, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return RoleUnspecified, false
	}
	upper := strings.ToUpper(trimmed)
	switch upper {
	case "GM", "ROLE_GM", "PARTICIPANT_ROLE_GM":
		return RoleGM, true
	case "PLAYER", "ROLE_PLAYER", "PARTICIPANT_ROLE_PLAYER":
		return RolePlayer, true
	case "SPECTATOR", "ROLE_SPECTATOR", "PARTICIPANT_ROLE_SPECTATOR":
		return RoleSpectator, true
	default:
		return RoleUnspecified, false
	}
}

// CanWrite reports whether the role may mutate session state.
func (r Role) CanWrite() bool {
	return r == RoleGM || r == RolePlayer
}
