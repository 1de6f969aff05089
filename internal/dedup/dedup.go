// Package dedup decides what to do with an incoming document given the
// documents already stored: exact-hash match first, then near-duplicate
// similarity, then the caller's ingestion policy.
package dedup

import (
	"context"
	"fmt"

	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/docstore"
)

// Policy governs what happens when a duplicate or near-duplicate is found.
type Policy string

const (
	PolicySkip          Policy = "skip"
	PolicyUpdate        Policy = "update"
	PolicyReplace       Policy = "replace"
	PolicyVersion       Policy = "version"
	PolicyMergeMetadata Policy = "merge_metadata"
)

// ParsePolicy validates a policy string. Unknown values are a configuration
// error, rejected before any document in the batch is processed.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkip, PolicyUpdate, PolicyReplace, PolicyVersion, PolicyMergeMetadata:
		return Policy(s), nil
	case "":
		return PolicySkip, nil
	}
	return "", &config.ConfigurationError{
		Field:  "policy",
		Reason: fmt.Sprintf("unknown policy %q: must be one of skip, update, replace, version, merge_metadata", s),
	}
}

// Action is the outcome of applying a policy to a dedup decision.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionReplaced  Action = "replaced"
	ActionVersioned Action = "versioned"
	ActionSkipped   Action = "skipped"
)

// Decision describes what the pipeline should do with an incoming document.
type Decision struct {
	Action     Action
	Candidate  *docstore.Document // the matched document, nil for created
	ExactMatch bool
	Similarity float64
	Warnings   []string
}

// Engine finds duplicate candidates and maps policy to action. It reads
// from the store but never writes; the pipeline applies the decision.
type Engine struct {
	store     docstore.Store
	threshold float64
}

// NewEngine creates a dedup engine with the given near-duplicate cosine
// similarity threshold.
func NewEngine(store docstore.Store, threshold float64) *Engine {
	return &Engine{store: store, threshold: threshold}
}

// Check finds the duplicate candidate for the given fingerprint and
// embedding, scoped to projectRef when non-empty, and applies the policy.
// An exact-hash match always takes precedence over a near-duplicate match.
func (e *Engine) Check(ctx context.Context, hash, normalized string, embedding []float32, projectRef string, policy Policy) (*Decision, error) {
	d := &Decision{}

	candidate, err := e.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if candidate != nil {
		if candidate.NormalizedText == normalized {
			d.ExactMatch = true
			d.Similarity = 1.0
		} else {
			// Hash collision: equal hashes with different normalized
			// text. Never silently merge; fall back to the
			// near-duplicate path.
			d.Warnings = append(d.Warnings, fmt.Sprintf(
				"dedup: hash collision with document %s, treating as near-duplicate", candidate.ID))
			candidate = nil
		}
	}

	if candidate == nil {
		candidate, d.Similarity, err = e.nearDuplicate(ctx, embedding, projectRef)
		if err != nil {
			return nil, err
		}
	}

	if candidate == nil {
		d.Action = ActionCreated
		return d, nil
	}
	d.Candidate = candidate

	switch policy {
	case PolicySkip:
		d.Action = ActionSkipped
	case PolicyUpdate:
		d.Action = ActionUpdated
	case PolicyReplace:
		d.Action = ActionReplaced
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"dedup: replacing document %s; its existing relations are not migrated", candidate.ID))
	case PolicyVersion:
		d.Action = ActionVersioned
	case PolicyMergeMetadata:
		d.Action = ActionUpdated
	default:
		return nil, &config.ConfigurationError{
			Field:  "policy",
			Reason: fmt.Sprintf("unknown policy %q", policy),
		}
	}
	return d, nil
}

// nearDuplicate returns the highest-similarity stored document at or above
// the threshold. The store breaks score ties by most recent updated_at.
// Scope is the given project when known, else global.
func (e *Engine) nearDuplicate(ctx context.Context, embedding []float32, projectRef string) (*docstore.Document, float64, error) {
	results, err := e.store.SimilaritySearch(ctx, embedding,
		docstore.Filters{ProjectRef: projectRef}, 1)
	if err != nil {
		return nil, 0, err
	}
	if len(results) == 0 || results[0].Score < e.threshold {
		return nil, 0, nil
	}
	return results[0].Document, results[0].Score, nil
}
