// Package proposal models group decisions put to a vote.
//
// A proposal snapshots its eligible voters at creation, so participants who
// join later sit that vote out. Ballots land until the deadline or until
// every eligible voter has cast one, at which point the decider emits the
// resolution alongside the final vote. Deadlines are enforced twice: votes
// past the deadline are refused even before the expiry sweep runs, and the
// sweep itself records the outcome with the deadline reason.
package proposal
