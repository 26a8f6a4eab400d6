// Package storage defines the persistence interfaces for the session
// journal and its snapshots. Backends live in the sqlite, postgres and
// memory subpackages and share the append contract: storage assigns the
// sequence and content hash, never the caller.
package storage
