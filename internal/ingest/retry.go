package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/embeddings"
)

const initialBackoff = 200 * time.Millisecond

// withRetry runs op up to attempts times with exponential backoff between
// tries. Only transient failures are retried; permanent ones return
// immediately. Exhausted retries return the last error.
func withRetry(ctx context.Context, attempts int, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := initialBackoff
	for i := 0; ; i++ {
		err := op()
		if err == nil {
			return nil
		}
		if i+1 >= attempts || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// isTransient reports whether the error is worth retrying.
func isTransient(err error) bool {
	var embErr *embeddings.EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Transient
	}
	var perErr *docstore.PersistenceError
	if errors.As(err, &perErr) {
		return perErr.Transient
	}
	return false
}
