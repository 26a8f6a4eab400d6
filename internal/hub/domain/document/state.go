package document

import (
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
)

// maxHistoryOps bounds the per-document op history kept for transformation.
// Editors further behind than this must resync instead of editing.
const maxHistoryOps = 500

// HistoryOp pairs an applied op with the version it produced.
type HistoryOp struct {
	Version int `json:"version"`
	Op      Op  `json:"op"`
}

// Document is one shared text document.
type Document struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Version   int         `json:"version"`
	History   []HistoryOp `json:"history,omitempty"`
	CreatedBy string      `json:"created_by,omitempty"`
	UpdatedAt time.Time   `json:"updated_at,omitzero"`
}

// OpsSince returns the ops applied after the given version, oldest first. The
// second result is false when the version has aged out of the retained
// history and transformation is no longer possible.
func (d Document) OpsSince(version int) ([]Op, bool) {
	if version == d.Version {
		return nil, true
	}
	oldest := d.Version - len(d.History)
	if version < oldest {
		return nil, false
	}
	ops := make([]Op, 0, d.Version-version)
	for _, entry := range d.History {
		if entry.Version > version {
			ops = append(ops, entry.Op)
		}
	}
	return ops, true
}

// State captures document facts derived from document events.
//
// ActorRole is resolved from the roster by the projection before a command is
// decided.
type State struct {
	Documents map[string]Document `json:"documents,omitempty"`
	ActorRole participant.Role    `json:"-"`
}

// NewState returns an empty document collection.
func NewState() State {
	return State{Documents: map[string]Document{}}
}
