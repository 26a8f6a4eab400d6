// Package sqlite implements the hub persistence contracts on a single
// embedded database file.
//
// Why this package exists:
// - It is the concrete backend where the event journal and snapshot store meet.
// - It owns migration and schema-compatibility behavior for session history durability.
// - It keeps sequence assignment in a per-session counter so compaction never
//   disturbs the numbering replay depends on.
//
// The backend uses hand-written SQL and embedded migrations; only this package
// translates journal-shaped records into concrete SQL rows and transactions.
package sqlite
