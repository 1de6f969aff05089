// Package extract provides the text extraction contract consumed by the
// ingestion pipeline: raw file bytes in, normalized plain text plus source
// metadata out. Rich formats (PDF, Word, Excel) are handled by external
// extractors satisfying the same interface.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extracted is the result of text extraction from a single source.
type Extracted struct {
	Text       string
	MimeType   string
	Size       int64
	SourceName string
}

// Extractor turns raw source bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, sourceName string, data []byte) (*Extracted, error)
}

// ExtractionError reports an unreadable or unsupported source. It is fatal
// to that one document.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PlainText extracts UTF-8 text files as-is.
type PlainText struct{}

func (PlainText) Extract(_ context.Context, sourceName string, data []byte) (*Extracted, error) {
	if !utf8.Valid(data) {
		return nil, &ExtractionError{Source: sourceName, Reason: "not valid UTF-8 text"}
	}
	return &Extracted{
		Text:       string(data),
		MimeType:   "text/plain",
		Size:       int64(len(data)),
		SourceName: sourceName,
	}, nil
}

// Registry selects an extractor by source file extension.
type Registry struct {
	byExt    map[string]Extractor
	fallback Extractor
}

// NewRegistry returns a registry with the built-in extractors: markdown for
// .md/.markdown, plain text for everything else.
func NewRegistry() *Registry {
	return &Registry{
		byExt: map[string]Extractor{
			".md":       Markdown{},
			".markdown": Markdown{},
		},
		fallback: PlainText{},
	}
}

// Register adds or replaces the extractor for the given extension.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

func (r *Registry) Extract(ctx context.Context, sourceName string, data []byte) (*Extracted, error) {
	ext := strings.ToLower(filepath.Ext(sourceName))
	if e, ok := r.byExt[ext]; ok {
		return e.Extract(ctx, sourceName, data)
	}
	return r.fallback.Extract(ctx, sourceName, data)
}
