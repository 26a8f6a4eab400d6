package document

// CreatePayload captures the payload for document.create commands and
// document.created events.
type CreatePayload struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
}

// EditPayload captures the payload for document.edit commands. ClientVersion
// is the document version the editor had applied when it produced the op.
type EditPayload struct {
	DocumentID    string `json:"document_id"`
	ClientVersion int    `json:"client_version"`
	Op            Op     `json:"op"`
}

// EditedPayload captures the payload for document.edited events. Op is the
// transformed operation actually applied; Version is the version it produced.
type EditedPayload struct {
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Op         Op     `json:"op"`
}
