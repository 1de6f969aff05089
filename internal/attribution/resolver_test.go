package attribution

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/registry"
)

type fakeLookup struct {
	projects []*registry.Project
}

func (f *fakeLookup) ByNumber(_ context.Context, number string) (*registry.Project, error) {
	for _, p := range f.projects {
		if p.Number == number {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeLookup) List(_ context.Context) ([]*registry.Project, error) {
	return f.projects, nil
}

type fakeStore struct {
	docstore.Store
	byProject map[string]float64 // project id -> best-match score
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ []float32, filters docstore.Filters, _ int) ([]docstore.ScoredDocument, error) {
	score, ok := f.byProject[filters.ProjectRef]
	if !ok {
		return nil, nil
	}
	return []docstore.ScoredDocument{{Document: &docstore.Document{ID: "x"}, Score: score}}, nil
}

func newResolver(t *testing.T, lookup registry.Lookup, store docstore.Store) *Resolver {
	t.Helper()
	r, err := New(lookup, store, config.DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestPatternMatchInFileName(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-4521", Name: "Harbor", ClientID: "c1"},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	out, err := r.Resolve(context.Background(), "Weekly sync", "PRJ-4521_notes.docx", "body text", []float32{1, 0})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !out.Assigned || out.ProjectRef != "p1" || out.ClientRef != "c1" {
		t.Errorf("outcome = %+v, want assigned to p1/c1", out)
	}
	if out.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want >= 0.9", out.Confidence)
	}
}

func TestPatternMatchInLeadingContent(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "OPS-101"},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	out, err := r.Resolve(context.Background(), "untitled", "notes.txt",
		"Re: OPS-101 kickoff agenda and milestones", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Assigned || out.ProjectRef != "p1" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestPatternIgnoredBeyondLeadingContent(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "OPS-101"},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	content := strings.Repeat("filler text ", 60) + "OPS-101"
	out, err := r.Resolve(context.Background(), "untitled", "notes.txt", content, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Assigned {
		t.Errorf("deep-content code should not attribute: %+v", out)
	}
}

func TestLowConfidenceNeedsReview(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1"},
		{ID: "p2", Number: "PRJ-2"},
	}}
	store := &fakeStore{byProject: map[string]float64{"p1": 0.3, "p2": 0.25}}
	r := newResolver(t, lookup, store)

	out, err := r.Resolve(context.Background(), "untitled", "misc.txt", "no codes here", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if out.Assigned || out.ProjectRef != "" {
		t.Errorf("low-confidence doc was assigned: %+v", out)
	}
	if !out.NeedsReview {
		t.Error("NeedsReview not set")
	}
	if len(out.Warnings) == 0 {
		t.Error("no warning recorded")
	}
}

func TestSemanticSignalAssignsAboveThreshold(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1", ClientID: "c1"},
	}}
	store := &fakeStore{byProject: map[string]float64{"p1": 0.8}}
	r := newResolver(t, lookup, store)

	out, err := r.Resolve(context.Background(), "untitled", "misc.txt", "no codes here", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Assigned || out.ProjectRef != "p1" {
		t.Errorf("outcome = %+v", out)
	}
	if out.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", out.Confidence)
	}
}

func TestCentroidPreferredOverSearch(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1", Centroid: []float32{1, 0}},
	}}
	// Store would return nothing; the centroid carries the signal.
	r := newResolver(t, lookup, &fakeStore{})

	out, err := r.Resolve(context.Background(), "untitled", "misc.txt", "no codes", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Assigned || out.Confidence < 0.99 {
		t.Errorf("outcome = %+v, want assigned with ~1.0 confidence", out)
	}
}

func TestDisagreementPatternWinsWithWarning(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1", ClientID: "c1"},
		{ID: "p2", Number: "PRJ-2", Centroid: []float32{1, 0}},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	out, err := r.Resolve(context.Background(), "PRJ-1 status", "status.txt", "body", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Assigned || out.ProjectRef != "p1" {
		t.Errorf("pattern did not win: %+v", out)
	}
	if len(out.Warnings) == 0 || !strings.Contains(out.Warnings[0], "disagree") {
		t.Errorf("missing disagreement warning: %v", out.Warnings)
	}
}

func TestAgreementTakesMaxConfidence(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1", Centroid: []float32{1, 0}},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	out, err := r.Resolve(context.Background(), "PRJ-1 report", "r.txt", "body", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	// Semantic ~1.0 exceeds pattern 0.9; max wins.
	if out.Confidence < 0.99 {
		t.Errorf("Confidence = %v, want ~1.0", out.Confidence)
	}
}

func TestConfidenceAlwaysInBounds(t *testing.T) {
	lookup := &fakeLookup{projects: []*registry.Project{
		{ID: "p1", Number: "PRJ-1", Centroid: []float32{-1, 0}},
	}}
	r := newResolver(t, lookup, &fakeStore{})

	// Negative cosine must clamp to 0, not go negative.
	out, err := r.Resolve(context.Background(), "untitled", "x.txt", "body", []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		t.Errorf("Confidence = %v, out of [0,1]", out.Confidence)
	}
}

func TestInvalidPatternIsConfigurationError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProjectCodePattern = "([unclosed"
	_, err := New(&fakeLookup{}, &fakeStore{}, cfg)
	var cerr *config.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
}

func TestNoSignalsNeedsReview(t *testing.T) {
	r := newResolver(t, &fakeLookup{}, &fakeStore{})
	out, err := r.Resolve(context.Background(), "t", "f.txt", "c", []float32{1})
	if err != nil {
		t.Fatal(err)
	}
	if !out.NeedsReview || out.Assigned {
		t.Errorf("outcome = %+v", out)
	}
}
