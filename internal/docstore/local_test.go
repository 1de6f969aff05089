package docstore

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/veltaworks/docintel/internal/db"
	"github.com/veltaworks/docintel/internal/fingerprint"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Similar texts produce similar vectors because shared characters contribute
// to the same positions in the vector.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = deterministicVector(text, m.dims)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i, ch := range text {
		idx := (int(ch) + i) % dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	s, err := NewLocalStore(d, &mockEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}
	return s
}

func testDocument(id, text string) *Document {
	normalized := fingerprint.Normalize(text)
	now := time.Now().UTC()
	return &Document{
		ID:             id,
		Title:          "doc " + id,
		Content:        text,
		NormalizedText: normalized,
		DocumentType:   DocTypeReport,
		Embedding:      deterministicVector(normalized, 64),
		ContentHash:    fingerprint.Hash(normalized),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	conf := 0.85
	doc := testDocument("d1", "quarterly revenue exceeded forecasts")
	doc.ProjectRef = "p-1"
	doc.ClientRef = "c-1"
	doc.AttributionConfidence = &conf
	doc.Source = SourceMeta{FileName: "rev.txt", Size: 37, MimeType: "text/plain"}

	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := s.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil")
	}
	if got.Content != doc.Content || got.ContentHash != doc.ContentHash {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ProjectRef != "p-1" || got.ClientRef != "c-1" {
		t.Errorf("refs = %q/%q", got.ProjectRef, got.ClientRef)
	}
	if got.AttributionConfidence == nil || *got.AttributionConfidence != 0.85 {
		t.Errorf("confidence = %v", got.AttributionConfidence)
	}
	if len(got.Embedding) != 64 {
		t.Errorf("embedding length = %d", len(got.Embedding))
	}
	if got.Source.FileName != "rev.txt" || got.Source.Size != 37 {
		t.Errorf("source = %+v", got.Source)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil", got)
	}
}

func TestGetByHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := testDocument("d1", "meeting notes from monday standup")
	if err := s.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByHash(ctx, doc.ContentHash)
	if err != nil {
		t.Fatalf("GetByHash() error: %v", err)
	}
	if got == nil || got.ID != "d1" {
		t.Fatalf("GetByHash() = %+v, want d1", got)
	}

	missing, err := s.GetByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetByHash(missing) error: %v", err)
	}
	if missing != nil {
		t.Errorf("GetByHash(missing) = %+v, want nil", missing)
	}
}

func TestSimilaritySearchExactContentRanksFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	target := testDocument("d1", "strategic plan for the new fiscal year")
	other := testDocument("d2", "zzz completely unrelated grocery list qqq")
	if err := s.Put(ctx, target); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, other); err != nil {
		t.Fatal(err)
	}

	results, err := s.SimilaritySearch(ctx, target.Embedding, Filters{}, 10)
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Document.ID != "d1" {
		t.Errorf("first result = %s, want d1", results[0].Document.ID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("exact match score = %v, want >= 0.999", results[0].Score)
	}
}

func TestSimilaritySearchNoDuplicateVisibility(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := testDocument("d1", "repeated upsert target")
	for i := 0; i < 3; i++ {
		doc.UpdatedAt = doc.UpdatedAt.Add(time.Second)
		if err := s.Put(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.SimilaritySearch(ctx, doc.Embedding, Filters{}, 10)
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	seen := 0
	for _, r := range results {
		if r.Document.ID == "d1" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("document appeared %d times, want 1", seen)
	}
}

func TestSimilaritySearchFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := testDocument("a", "alpha project planning meeting")
	a.ProjectRef = "p-alpha"
	a.DocumentType = DocTypeMeeting
	b := testDocument("b", "alpha project planning meetings")
	b.ProjectRef = "p-beta"
	b.DocumentType = DocTypeReport
	for _, doc := range []*Document{a, b} {
		if err := s.Put(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.SimilaritySearch(ctx, a.Embedding, Filters{ProjectRef: "p-alpha"}, 10)
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "a" {
		t.Errorf("project filter results = %+v", results)
	}

	results, err = s.SimilaritySearch(ctx, a.Embedding, Filters{DocumentType: DocTypeReport}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "b" {
		t.Errorf("type filter results = %+v", results)
	}
}

func TestSimilaritySearchTimeFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := testDocument("old", "archived report")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	recent := testDocument("recent", "archived reports")
	for _, doc := range []*Document{old, recent} {
		if err := s.Put(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	results, err := s.SimilaritySearch(ctx, recent.Embedding, Filters{CreatedAfter: cutoff}, 10)
	if err != nil {
		t.Fatalf("SimilaritySearch() error: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "recent" {
		t.Errorf("time filter results = %+v", results)
	}
}

func TestMarkSupersededHidesDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := testDocument("d1", "superseded soon")
	if err := s.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSuperseded(ctx, "d1", "d2"); err != nil {
		t.Fatalf("MarkSuperseded() error: %v", err)
	}

	if got, _ := s.GetByHash(ctx, doc.ContentHash); got != nil {
		t.Errorf("GetByHash still returns superseded doc %s", got.ID)
	}
	results, err := s.SimilaritySearch(ctx, doc.Embedding, Filters{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Document.ID == "d1" {
			t.Error("superseded doc still visible in search")
		}
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, typ := range []DocumentType{DocTypeMeeting, DocTypeMeeting, DocTypeReport} {
		doc := testDocument(fmt.Sprintf("d%d", i), fmt.Sprintf("document body %d", i))
		doc.DocumentType = typ
		if err := s.Put(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	agg, err := s.Aggregate(ctx, Filters{})
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if agg.Total != 3 {
		t.Errorf("Total = %d, want 3", agg.Total)
	}
	if agg.ByType[DocTypeMeeting] != 2 || agg.ByType[DocTypeReport] != 1 {
		t.Errorf("ByType = %v", agg.ByType)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if agg.ByDay[today] != 3 {
		t.Errorf("ByDay[%s] = %d, want 3", today, agg.ByDay[today])
	}

	agg, err = s.Aggregate(ctx, Filters{DocumentType: DocTypeMeeting})
	if err != nil {
		t.Fatal(err)
	}
	if agg.Total != 2 {
		t.Errorf("filtered Total = %d, want 2", agg.Total)
	}
}

func TestReindexOnOpen(t *testing.T) {
	ctx := context.Background()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s1, err := NewLocalStore(d, &mockEmbedder{dims: 64})
	if err != nil {
		t.Fatal(err)
	}
	doc := testDocument("d1", "durable across reopen")
	if err := s1.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}

	// A second store over the same database rebuilds its index from rows.
	s2, err := NewLocalStore(d, &mockEmbedder{dims: 64})
	if err != nil {
		t.Fatal(err)
	}
	results, err := s2.SimilaritySearch(ctx, doc.Embedding, Filters{}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "d1" {
		t.Errorf("reindexed search = %+v", results)
	}
}
