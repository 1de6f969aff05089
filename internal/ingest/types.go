package ingest

import (
	"github.com/veltaworks/docintel/internal/dedup"
	"github.com/veltaworks/docintel/internal/docstore"
)

// State is a document's position in the ingestion pipeline. Each document
// moves through states independently of its batch siblings.
type State string

const (
	StateReceived         State = "received"
	StateNormalized       State = "normalized"
	StateEmbedded         State = "embedded"
	StateDuplicateChecked State = "duplicate_checked"
	StateAttributed       State = "attributed"
	StatePersisted        State = "persisted"
	StateRejected         State = "rejected"
	StateSkipped          State = "skipped"
)

// DocumentInput is one document submitted for ingestion. Text is already
// extracted plain text; the extract package produces it from raw sources.
type DocumentInput struct {
	Text         string                 `json:"text"`
	Title        string                 `json:"title"`
	SourceName   string                 `json:"source_name,omitempty"`
	DocumentType docstore.DocumentType  `json:"document_type,omitempty"`
	MimeType     string                 `json:"mime_type,omitempty"`
	Size         int64                  `json:"size,omitempty"`
	ProjectRef   string                 `json:"project_ref,omitempty"` // caller-asserted project scope
}

// IngestionResult is the outcome for one submitted document. Exactly one is
// returned per input, success or not.
type IngestionResult struct {
	Index             int          `json:"index"`
	State             State        `json:"state"`
	Action            dedup.Action `json:"action,omitempty"`
	DocumentID        string       `json:"document_id,omitempty"`
	MatchedDocumentID string       `json:"matched_document_id,omitempty"`

	ProjectRef  string   `json:"project_ref,omitempty"`
	ClientRef   string   `json:"client_ref,omitempty"`
	Confidence  *float64 `json:"attribution_confidence,omitempty"`
	NeedsReview bool     `json:"needs_review,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Failed reports whether the document was rejected.
func (r *IngestionResult) Failed() bool { return r.Error != "" }
