package embeddings

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	dims int
	fail error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Name() string    { return "stub" }

func TestEmbedOneRejectsEmptyInput(t *testing.T) {
	e := &stubEmbedder{dims: 4}

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := EmbedOne(context.Background(), e, text)
		var embErr *EmbeddingError
		if !errors.As(err, &embErr) {
			t.Fatalf("EmbedOne(%q) error = %v, want *EmbeddingError", text, err)
		}
		if embErr.Transient {
			t.Errorf("empty-input error marked transient")
		}
	}
}

func TestEmbedOneSuccess(t *testing.T) {
	e := &stubEmbedder{dims: 4}
	vec, err := EmbedOne(context.Background(), e, "hello")
	if err != nil {
		t.Fatalf("EmbedOne() error: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("len(vec) = %d, want 4", len(vec))
	}
}

func TestEmbedOneWrapsModelFailureAsTransient(t *testing.T) {
	e := &stubEmbedder{dims: 4, fail: errors.New("connection refused")}
	_, err := EmbedOne(context.Background(), e, "hello")
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("error = %v, want *EmbeddingError", err)
	}
	if !embErr.Transient {
		t.Error("model failure not marked transient")
	}
}

func TestEmbedEachReportsPerItem(t *testing.T) {
	e := &stubEmbedder{dims: 4}
	results := EmbedEach(context.Background(), e, []string{"alpha", "", "gamma"})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("valid items failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("empty item did not fail")
	}
	if results[0].Vector == nil || results[2].Vector == nil {
		t.Error("valid items missing vectors")
	}
}

func TestEmbedEachAttributesBatchFailureToAllItems(t *testing.T) {
	e := &stubEmbedder{dims: 4, fail: errors.New("timeout")}
	results := EmbedEach(context.Background(), e, []string{"a", "b"})

	for i, r := range results {
		var embErr *EmbeddingError
		if !errors.As(r.Err, &embErr) {
			t.Fatalf("item %d error = %v, want *EmbeddingError", i, r.Err)
		}
		if !embErr.Transient {
			t.Errorf("item %d batch failure not marked transient", i)
		}
	}
}
