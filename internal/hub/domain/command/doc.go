// Package command defines the canonical command envelope and contract used across
// the write path.
//
// Commands express participant intent from transport callers and the deadline
// scheduler. They are the stable boundary before domain deciders so that business
// rules are evaluated only against normalized inputs.
//
// The package-level registry and definitions exist to keep command behavior
// consistent for: payload compatibility and actor identity defaults.
package command
