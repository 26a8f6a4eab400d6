package document

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// OpKind identifies the edit operation label.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpDelete OpKind = "delete"
	// OpNoop marks an edit whose effect was consumed by concurrent operations.
	// It still advances the document version so the editor's ack stays aligned.
	OpNoop OpKind = "noop"
)

// ErrOpOutOfBounds reports an operation that does not fit the content it is
// applied to. Emitted ops are clamped before append, so seeing this during
// replay means the journal is corrupt.
var ErrOpOutOfBounds = errors.New("document op is out of bounds")

// Op is a single edit operation. Positions and lengths count runes.
//
// EditorID is the participant id that produced the op. Concurrent inserts at
// the same position order by it: the lower editor id lands earlier in the
// document no matter which op reached the hub first.
type Op struct {
	Kind     OpKind `json:"kind"`
	Position int    `json:"position"`
	Text     string `json:"text,omitempty"`
	Length   int    `json:"length,omitempty"`
	EditorID string `json:"editor_id,omitempty"`
}

func (op Op) end() int {
	return op.Position + op.Length
}

func (op Op) textLen() int {
	return utf8.RuneCountInString(op.Text)
}

// Transform rewrites op so that it applies to a document that has already
// applied prior. The second result is false when the op's effect was consumed
// by prior and nothing is left to apply.
//
// The rules keep every op a single span:
//   - insert vs insert: the earlier position wins; ties order by editor id.
//   - insert vs delete: an insert whose anchor was deleted is consumed.
//   - delete vs insert: a delete spanning a concurrent insert swallows the
//     inserted text along with the original span.
//   - delete vs delete: overlapping spans shrink by the part already removed.
//
// Both orderings of any concurrent pair produce the same document, which is
// what lets the per-session journal apply ops in arrival order.
func Transform(op, prior Op) (Op, bool) {
	if op.Kind == OpNoop || prior.Kind == OpNoop {
		return op, op.Kind != OpNoop
	}

	switch {
	case op.Kind == OpInsert && prior.Kind == OpInsert:
		if prior.Position < op.Position ||
			(prior.Position == op.Position && prior.EditorID < op.EditorID) {
			op.Position += prior.textLen()
		}
		return op, true

	case op.Kind == OpInsert && prior.Kind == OpDelete:
		if op.Position <= prior.Position {
			return op, true
		}
		if op.Position >= prior.end() {
			op.Position -= prior.Length
			return op, true
		}
		return op, false

	case op.Kind == OpDelete && prior.Kind == OpInsert:
		if prior.Position <= op.Position {
			op.Position += prior.textLen()
			return op, true
		}
		if prior.Position >= op.end() {
			return op, true
		}
		op.Length += prior.textLen()
		return op, true

	case op.Kind == OpDelete && prior.Kind == OpDelete:
		if prior.end() <= op.Position {
			op.Position -= prior.Length
			return op, true
		}
		if prior.Position >= op.end() {
			return op, true
		}
		if prior.Position <= op.Position && prior.end() >= op.end() {
			return op, false
		}
		if prior.Position >= op.Position && prior.end() <= op.end() {
			op.Length -= prior.Length
			return op, true
		}
		if prior.Position <= op.Position {
			length := op.end() - prior.end()
			op.Position = prior.Position
			op.Length = length
			return op, true
		}
		op.Length = prior.Position - op.Position
		return op, true
	}
	return op, true
}

// TransformAgainst rewrites op across every prior op in order.
func TransformAgainst(op Op, priors []Op) (Op, bool) {
	for _, prior := range priors {
		var live bool
		op, live = Transform(op, prior)
		if !live {
			return op, false
		}
	}
	return op, true
}

// Clamp fits op to the content length, shrinking deletes that run past the
// end and pulling insert anchors back inside the document.
func Clamp(op Op, contentLen int) (Op, bool) {
	switch op.Kind {
	case OpInsert:
		if op.Position < 0 {
			op.Position = 0
		}
		if op.Position > contentLen {
			op.Position = contentLen
		}
		return op, op.Text != ""
	case OpDelete:
		if op.Position < 0 {
			op.Position = 0
		}
		if op.Position > contentLen {
			op.Position = contentLen
		}
		if op.end() > contentLen {
			op.Length = contentLen - op.Position
		}
		return op, op.Length > 0
	default:
		return op, false
	}
}

// Apply runs op against content and returns the new content.
func Apply(content string, op Op) (string, error) {
	runes := []rune(content)
	switch op.Kind {
	case OpInsert:
		if op.Position < 0 || op.Position > len(runes) {
			return content, fmt.Errorf("%w: insert at %d in %d runes", ErrOpOutOfBounds, op.Position, len(runes))
		}
		next := make([]rune, 0, len(runes)+op.textLen())
		next = append(next, runes[:op.Position]...)
		next = append(next, []rune(op.Text)...)
		next = append(next, runes[op.Position:]...)
		return string(next), nil
	case OpDelete:
		if op.Position < 0 || op.end() > len(runes) {
			return content, fmt.Errorf("%w: delete [%d,%d) in %d runes", ErrOpOutOfBounds, op.Position, op.end(), len(runes))
		}
		next := make([]rune, 0, len(runes)-op.Length)
		next = append(next, runes[:op.Position]...)
		next = append(next, runes[op.end():]...)
		return string(next), nil
	case OpNoop:
		return content, nil
	default:
		return content, fmt.Errorf("document op kind %q is unknown", op.Kind)
	}
}
