package embeddings

import (
	"context"
	"fmt"
	"strings"
)

// Embedder defines the interface for generating text embeddings.
// Implementations must be deterministic: the same text and model version
// always yield the same vector.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbeddingError reports a failure to embed text. Transient errors (model
// unavailable, timeout) may be retried; permanent ones (empty input) may not.
type EmbeddingError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding: %s: %v", e.Reason, e.Err)
	}
	return "embedding: " + e.Reason
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// ErrEmptyInput returns the permanent error for empty or whitespace-only text.
func ErrEmptyInput() *EmbeddingError {
	return &EmbeddingError{Reason: "empty or whitespace-only input"}
}

// EmbedOne embeds a single text, rejecting empty input up front.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput()
	}
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, &EmbeddingError{Reason: "model request failed", Transient: true, Err: err}
	}
	if len(vecs) != 1 {
		return nil, &EmbeddingError{Reason: fmt.Sprintf("model returned %d vectors, expected 1", len(vecs))}
	}
	return vecs[0], nil
}

// ItemResult is the per-text outcome of a batched embedding call.
type ItemResult struct {
	Vector []float32
	Err    error
}

// EmbedEach embeds a batch of texts with per-item error reporting. Empty
// texts fail individually without blocking the rest of the batch; a failed
// model request is attributed to every text it covered.
func EmbedEach(ctx context.Context, e Embedder, texts []string) []ItemResult {
	results := make([]ItemResult, len(texts))

	var valid []string
	var validIdx []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i].Err = ErrEmptyInput()
			continue
		}
		valid = append(valid, t)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	vecs, err := e.Embed(ctx, valid)
	if err != nil {
		embErr := &EmbeddingError{Reason: "model request failed", Transient: true, Err: err}
		for _, i := range validIdx {
			results[i].Err = embErr
		}
		return results
	}

	for j, i := range validIdx {
		if j < len(vecs) {
			results[i].Vector = vecs[j]
		} else {
			results[i].Err = &EmbeddingError{Reason: "model returned fewer vectors than inputs"}
		}
	}
	return results
}
