package document

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/gathering.place/internal/hub/domain/event"
)

// FoldHandledTypes returns the event types handled by the document fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeDocumentCreated,
		event.TypeDocumentEdited,
	}
}

// Fold applies an event to document state. Edited events carry ops that were
// already transformed and clamped, so an apply failure here means the journal
// no longer matches the content and replay must stop.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeDocumentCreated:
		var payload CreatePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("document fold %s: %w", evt.Type, err)
		}
		state.Documents = cloneDocuments(state.Documents)
		state.Documents[payload.DocumentID] = Document{
			ID:        payload.DocumentID,
			Title:     payload.Title,
			Content:   payload.Content,
			CreatedBy: evt.ActorID,
			UpdatedAt: evt.Timestamp,
		}
	case event.TypeDocumentEdited:
		var payload EditedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("document fold %s: %w", evt.Type, err)
		}
		doc, ok := state.Documents[payload.DocumentID]
		if !ok {
			return state, fmt.Errorf("document fold %s: document %s does not exist", evt.Type, payload.DocumentID)
		}
		content, err := Apply(doc.Content, payload.Op)
		if err != nil {
			return state, fmt.Errorf("document fold %s: %w", evt.Type, err)
		}
		doc.Content = content
		doc.Version = payload.Version
		doc.UpdatedAt = evt.Timestamp
		history := append([]HistoryOp(nil), doc.History...)
		history = append(history, HistoryOp{Version: payload.Version, Op: payload.Op})
		if len(history) > maxHistoryOps {
			history = history[len(history)-maxHistoryOps:]
		}
		doc.History = history
		state.Documents = cloneDocuments(state.Documents)
		state.Documents[payload.DocumentID] = doc
	}
	return state, nil
}

func cloneDocuments(documents map[string]Document) map[string]Document {
	cloned := make(map[string]Document, len(documents)+1)
	for id, doc := range documents {
		cloned[id] = doc
	}
	return cloned
}
