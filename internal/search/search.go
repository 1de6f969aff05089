// Package search is the read path: a query string becomes a vector, the
// vector becomes ranked document summaries.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/embeddings"
)

// DefaultLimit caps result sets when the caller does not ask for a size.
const DefaultLimit = 10

// SearchError reports an invalid query or filter set. It is caller-facing
// and never retried.
type SearchError struct {
	Reason string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search: %s", e.Reason)
}

// Request is one similarity query. Zero-value filters are unrestricted.
type Request struct {
	Query         string                `json:"query"`
	ProjectRef    string                `json:"project_ref,omitempty"`
	DocumentType  docstore.DocumentType `json:"document_type,omitempty"`
	CreatedAfter  time.Time             `json:"created_after,omitempty"`
	CreatedBefore time.Time             `json:"created_before,omitempty"`
	Limit         int                   `json:"limit,omitempty"`
}

// Result is one ranked hit.
type Result struct {
	Document docstore.DocumentSummary `json:"document"`
	Score    float64                  `json:"score"`
}

// Service embeds queries and delegates ranking to the store.
type Service struct {
	embedder embeddings.Embedder
	store    docstore.Store
}

func NewService(embedder embeddings.Embedder, store docstore.Store) *Service {
	return &Service{embedder: embedder, store: store}
}

// Search returns up to req.Limit documents ranked by cosine similarity to
// the query text, filtered by the request's metadata constraints.
func (s *Service) Search(ctx context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, &SearchError{Reason: "empty query text"}
	}
	if req.DocumentType != "" && !docstore.ValidType(req.DocumentType) {
		return nil, &SearchError{Reason: fmt.Sprintf("unknown document type %q", req.DocumentType)}
	}
	if !req.CreatedAfter.IsZero() && !req.CreatedBefore.IsZero() &&
		req.CreatedBefore.Before(req.CreatedAfter) {
		return nil, &SearchError{Reason: "created_before precedes created_after"}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, err := embeddings.EmbedOne(ctx, s.embedder, req.Query)
	if err != nil {
		return nil, err
	}

	scored, err := s.store.SimilaritySearch(ctx, vector, docstore.Filters{
		ProjectRef:    req.ProjectRef,
		DocumentType:  req.DocumentType,
		CreatedAfter:  req.CreatedAfter,
		CreatedBefore: req.CreatedBefore,
	}, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(scored))
	for i, sd := range scored {
		results[i] = Result{Document: sd.Document.Summary(), Score: sd.Score}
	}
	return results, nil
}
