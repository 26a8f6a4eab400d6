package postgres

import (
	"strings"
	"testing"
)

func TestRebind_NumbersPlaceholders(t *testing.T) {
	got := rebind("event_type = ? AND actor_id = ?", 3)
	want := "event_type = $3 AND actor_id = $4"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
}

func TestRebind_NoPlaceholders(t *testing.T) {
	got := rebind("seq > 10", 1)
	if got != "seq > 10" {
		t.Fatalf("rebind = %q, want unchanged clause", got)
	}
}

func TestMigrationStatements_CreateJournalTables(t *testing.T) {
	joined := strings.Join(migrationStatements, "\n")
	for _, table := range []string{"events", "event_seq", "snapshots"} {
		if !strings.Contains(joined, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("migration statements missing table %s", table)
		}
	}
}
