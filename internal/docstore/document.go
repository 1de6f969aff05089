package docstore

import "time"

// DocumentType categorizes the kind of business document stored in the engine.
type DocumentType string

const (
	DocTypeMeeting   DocumentType = "meeting"
	DocTypeStrategic DocumentType = "strategic"
	DocTypeReport    DocumentType = "report"
	DocTypeOther     DocumentType = "other"
)

// ValidType reports whether t is a recognized document type.
func ValidType(t DocumentType) bool {
	switch t {
	case DocTypeMeeting, DocTypeStrategic, DocTypeReport, DocTypeOther:
		return true
	}
	return false
}

// SourceMeta describes where a document came from.
type SourceMeta struct {
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Document is a fully ingested, searchable record. A document is never
// partially persisted: embedding, fingerprint, and attribution are all
// computed before the store write.
type Document struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Content          string       `json:"content"`
	NormalizedText   string       `json:"-"`
	DocumentType     DocumentType `json:"document_type"`
	Embedding        []float32    `json:"-"`
	ContentHash      string       `json:"content_hash"`
	NearDupSignature string       `json:"near_dup_signature,omitempty"`

	ProjectRef            string   `json:"project_ref,omitempty"`
	ClientRef             string   `json:"client_ref,omitempty"`
	AttributionConfidence *float64 `json:"attribution_confidence,omitempty"`
	NeedsReview           bool     `json:"needs_review,omitempty"`

	Source SourceMeta `json:"source"`

	// VersionOf links a versioned row back to the document it supersedes
	// logically; both remain queryable. SupersededBy marks a row replaced
	// by a newer one; superseded rows drop out of search and aggregation.
	VersionOf    string `json:"version_of,omitempty"`
	SupersededBy string `json:"superseded_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the lightweight representation used in search results.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:           d.ID,
		Title:        d.Title,
		DocumentType: d.DocumentType,
		ProjectRef:   d.ProjectRef,
		ClientRef:    d.ClientRef,
		SourceName:   d.Source.FileName,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// DocumentSummary is the caller-facing projection of a document.
type DocumentSummary struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	DocumentType DocumentType `json:"document_type"`
	ProjectRef   string       `json:"project_ref,omitempty"`
	ClientRef    string       `json:"client_ref,omitempty"`
	SourceName   string       `json:"source_name,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ScoredDocument pairs a document with its cosine similarity to a query.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// Filters narrows searches and aggregations. Zero values mean "no filter".
type Filters struct {
	ProjectRef    string
	DocumentType  DocumentType
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.ProjectRef == "" && f.DocumentType == "" &&
		f.CreatedAfter.IsZero() && f.CreatedBefore.IsZero()
}

// Aggregates is the result of a metadata rollup.
type Aggregates struct {
	Total  int                  `json:"total"`
	ByType map[DocumentType]int `json:"by_type"`
	ByDay  map[string]int       `json:"by_day"` // ISO date (UTC) -> count
}
