package document

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

const (
	commandTypeCreate command.Type = "document.create"
	commandTypeEdit   command.Type = "document.edit"

	rejectionCodeDocumentAlreadyExists = "DOCUMENT_ALREADY_EXISTS"
	rejectionCodeDocumentNotFound      = "DOCUMENT_NOT_FOUND"
	rejectionCodeDocumentTitleEmpty    = "DOCUMENT_TITLE_EMPTY"
	rejectionCodeDocumentIDRequired    = "DOCUMENT_ID_REQUIRED"
	rejectionCodeDocumentVersionAhead  = "DOCUMENT_VERSION_AHEAD"
	rejectionCodeDocumentVersionTooOld = "DOCUMENT_VERSION_TOO_OLD"
	rejectionCodeDocumentOpInvalid     = "DOCUMENT_OP_INVALID"
	rejectionCodeUnauthorized          = "UNAUTHORIZED"
)

// Decide returns the decision for a document command against current state.
//
// Edits are where differing realities meet: the editor produced its op against
// ClientVersion, the document may have moved on since. The decider transforms
// the op across every version the editor missed, clamps it to the current
// content, and emits the result. An op whose effect was consumed entirely by
// concurrent edits is still accepted as a noop so the editor's version
// counter advances with everyone else's.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == commandTypeCreate {
		if !state.ActorRole.CanWrite() && cmd.ActorType != command.ActorTypeSystem {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor may not create documents",
			})
		}
		var payload CreatePayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		documentID := strings.TrimSpace(payload.DocumentID)
		if documentID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentIDRequired,
				Message: "document id is required",
			})
		}
		title := strings.TrimSpace(payload.Title)
		if title == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentTitleEmpty,
				Message: "document title is required",
			})
		}
		if _, exists := state.Documents[documentID]; exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentAlreadyExists,
				Message: "document already exists",
			})
		}

		normalized := CreatePayload{DocumentID: documentID, Title: title, Content: payload.Content}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeDocumentCreated, "document", documentID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	if cmd.Type == commandTypeEdit {
		if !state.ActorRole.CanWrite() && cmd.ActorType != command.ActorTypeSystem {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeUnauthorized,
				Message: "actor may not edit documents",
			})
		}
		var payload EditPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		documentID := strings.TrimSpace(payload.DocumentID)
		if documentID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentIDRequired,
				Message: "document id is required",
			})
		}
		doc, exists := state.Documents[documentID]
		if !exists {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentNotFound,
				Message: "document does not exist",
			})
		}
		if payload.ClientVersion < 0 || payload.ClientVersion > doc.Version {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentVersionAhead,
				Message: "client version is ahead of the document",
			})
		}
		op := payload.Op
		if !validOp(op) {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentOpInvalid,
				Message: "document op is invalid",
			})
		}
		op.EditorID = cmd.ActorID

		missed, ok := doc.OpsSince(payload.ClientVersion)
		if !ok {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeDocumentVersionTooOld,
				Message: "client version predates retained history, resync required",
			})
		}
		op, live := TransformAgainst(op, missed)
		if live {
			op, live = Clamp(op, utf8.RuneCountInString(doc.Content))
		}
		if !live {
			op = Op{Kind: OpNoop, EditorID: cmd.ActorID}
		}

		normalized := EditedPayload{DocumentID: documentID, Version: doc.Version + 1, Op: op}
		payloadJSON, _ := json.Marshal(normalized)
		evt := command.NewEvent(cmd, event.TypeDocumentEdited, "document", documentID, payloadJSON, now().UTC())
		return command.Accept(evt)
	}

	return command.Decision{}
}

// validOp checks the op shape before any transformation.
func validOp(op Op) bool {
	switch op.Kind {
	case OpInsert:
		return op.Position >= 0 && op.Text != "" && op.Length == 0
	case OpDelete:
		return op.Position >= 0 && op.Length > 0 && op.Text == ""
	default:
		return false
	}
}
