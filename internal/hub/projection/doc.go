// Package projection materializes session state from the journal.
//
// State bundles every domain slice; Apply dispatches one event to the fold
// that owns its slice; Replay pages through the journal and applies in
// sequence order; Decide routes a command to its domain decider with the
// cross-slice facts stamped in. Snapshots are the encoded State plus a
// version, keyed by the journal sequence they cover.
package projection
