// Package event defines the canonical event envelope and event-type registry used by
// the hub write path.
//
// Events are immutable facts emitted by accepted decisions. The registry enforces
// actor metadata, entity addressing, and payload validity before persistence
// assigns sequence and integrity fields.
//
// A stable event contract is the foundation for replay, projection correctness,
// and late-joiner catch-up that depend on the same semantic names.
package event
