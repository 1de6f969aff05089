package docstore

import (
	"context"
	"fmt"
)

// Store is the logical contract this engine requires of its document store.
// A document is visible to GetByHash and SimilaritySearch only once Put has
// returned successfully. Implementations that keep a separate vector index
// may, on a failed Put, leave the row visible to GetByHash but absent from
// SimilaritySearch until the index is rebuilt at the next open.
type Store interface {
	// Put upserts a document by id. All fields become visible or none do.
	Put(ctx context.Context, doc *Document) error

	// Get retrieves a document by id, or nil when absent.
	Get(ctx context.Context, id string) (*Document, error)

	// GetByHash retrieves the document with the given content hash, or nil
	// when absent. When several rows share the hash (version policy), the
	// most recently updated one wins.
	GetByHash(ctx context.Context, hash string) (*Document, error)

	// SimilaritySearch returns up to limit documents ranked by cosine
	// similarity to the query vector, descending, ties broken by more
	// recent updated_at. Superseded documents are excluded.
	SimilaritySearch(ctx context.Context, vector []float32, f Filters, limit int) ([]ScoredDocument, error)

	// Aggregate rolls up counts by document type and by day.
	Aggregate(ctx context.Context, f Filters) (*Aggregates, error)

	// MarkSuperseded records that id was replaced by byID and removes it
	// from the search index.
	MarkSuperseded(ctx context.Context, id, byID string) error

	// Count returns the number of live (non-superseded) documents.
	Count(ctx context.Context) (int, error)
}

// PersistenceError reports a store read or write failure. Transient errors
// (busy database, I/O timeout) are retried with backoff before becoming
// fatal to the affected document.
type PersistenceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("docstore %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
