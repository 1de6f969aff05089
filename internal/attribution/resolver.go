// Package attribution assigns documents to projects and clients with a
// confidence score, combining an exact project-code pattern signal with a
// semantic similarity signal against each project's document corpus.
package attribution

import (
	"context"
	"fmt"
	"regexp"

	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/fingerprint"
	"github.com/veltaworks/docintel/internal/registry"
)

// leadingContentBytes bounds how much of the document body is scanned for a
// project code. Codes in real documents sit in the header block.
const leadingContentBytes = 512

// Outcome is the result of resolving one document.
type Outcome struct {
	ProjectRef  string
	ClientRef   string
	Confidence  float64
	Assigned    bool
	NeedsReview bool
	Warnings    []string
}

// Resolver decides project/client attribution. It never writes to the
// project registry.
type Resolver struct {
	lookup            registry.Lookup
	store             docstore.Store
	pattern           *regexp.Regexp
	patternConfidence float64
	autoAssign        float64
}

// New builds a Resolver from configuration. An invalid project-code pattern
// is a configuration error.
func New(lookup registry.Lookup, store docstore.Store, cfg *config.Config) (*Resolver, error) {
	re, err := regexp.Compile(cfg.ProjectCodePattern)
	if err != nil {
		return nil, &config.ConfigurationError{
			Field:  "project_code_pattern",
			Reason: fmt.Sprintf("invalid regexp: %v", err),
		}
	}
	return &Resolver{
		lookup:            lookup,
		store:             store,
		pattern:           re,
		patternConfidence: cfg.PatternConfidence,
		autoAssign:        cfg.AutoAssignThreshold,
	}, nil
}

// Resolve attributes a document given its title, source file name, content,
// and embedding. The exact-identifier pattern signal is authoritative when
// the two signals disagree.
func (r *Resolver) Resolve(ctx context.Context, title, fileName, content string, embedding []float32) (*Outcome, error) {
	out := &Outcome{}

	patternProject, err := r.patternSignal(ctx, title, fileName, content)
	if err != nil {
		return nil, err
	}

	semanticProject, semanticScore, err := r.semanticSignal(ctx, embedding)
	if err != nil {
		return nil, err
	}

	var chosen *registry.Project
	switch {
	case patternProject != nil && semanticProject != nil && patternProject.ID == semanticProject.ID:
		chosen = patternProject
		out.Confidence = max(r.patternConfidence, semanticScore)
	case patternProject != nil && semanticProject != nil:
		// Exact identifiers are authoritative, but record the conflict.
		chosen = patternProject
		out.Confidence = r.patternConfidence
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"attribution: pattern signal (%s) and semantic signal (%s, %.2f) disagree; pattern wins",
			patternProject.Number, semanticProject.Number, semanticScore))
	case patternProject != nil:
		chosen = patternProject
		out.Confidence = r.patternConfidence
	case semanticProject != nil:
		chosen = semanticProject
		out.Confidence = semanticScore
	default:
		out.NeedsReview = true
		return out, nil
	}

	out.Confidence = clamp01(out.Confidence)

	if out.Confidence < r.autoAssign {
		out.NeedsReview = true
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"attribution: confidence %.2f below auto-assign threshold %.2f for %s, needs review",
			out.Confidence, r.autoAssign, chosen.Number))
		return out, nil
	}

	out.Assigned = true
	out.ProjectRef = chosen.ID
	out.ClientRef = chosen.ClientID
	return out, nil
}

// patternSignal scans title, file name, and the leading content for a
// project-number-shaped token that matches a registry entry exactly.
func (r *Resolver) patternSignal(ctx context.Context, title, fileName, content string) (*registry.Project, error) {
	leading := content
	if len(leading) > leadingContentBytes {
		leading = leading[:leadingContentBytes]
	}

	for _, text := range []string{title, fileName, leading} {
		for _, token := range r.pattern.FindAllString(text, -1) {
			p, err := r.lookup.ByNumber(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("registry lookup %s: %w", token, err)
			}
			if p != nil {
				return p, nil
			}
		}
	}
	return nil, nil
}

// semanticSignal scores the embedding against each candidate project: its
// stored centroid when one exists, else its best-matching existing document.
func (r *Resolver) semanticSignal(ctx context.Context, embedding []float32) (*registry.Project, float64, error) {
	if len(embedding) == 0 {
		return nil, 0, nil
	}

	projects, err := r.lookup.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("registry list: %w", err)
	}

	var best *registry.Project
	var bestScore float64
	for _, p := range projects {
		var score float64
		if len(p.Centroid) > 0 {
			score = fingerprint.Cosine(embedding, p.Centroid)
		} else {
			matches, err := r.store.SimilaritySearch(ctx, embedding,
				docstore.Filters{ProjectRef: p.ID}, 1)
			if err != nil {
				return nil, 0, err
			}
			if len(matches) == 0 {
				continue
			}
			score = matches[0].Score
		}
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	return best, clamp01(bestScore), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
