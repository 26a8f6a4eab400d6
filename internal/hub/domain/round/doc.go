// Package round models simultaneous action declarations and their
// deterministic resolution.
//
// The game master opens a round with a fixed roster and initiative order.
// Each character declares once; a later declaration replaces the earlier one
// while the window is open. Resolution fires when every character has
// declared, when the deadline passes, or on game master command, and orders
// the declared actions by initiative descending with character id as the
// tie-break. The whole ordering ships in a single event.
package round
