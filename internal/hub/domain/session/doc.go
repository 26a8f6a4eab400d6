// Package session models the shared table: lifecycle status, the world facts
// every participant sees, chat, and dice.
//
// Lifecycle moves through planned, active, paused and ended; ended is
// terminal. World mutations only land while the session is active, and who
// may apply them depends on the change kind. Dice rolls resolve inside the
// decider from a seed stamped on the command, so the journal records the
// authoritative result.
package session
