// Package ingest orchestrates the document pipeline: normalize, embed,
// duplicate-check, attribute, persist. A bounded worker pool runs documents
// end to end independently; one result is returned per submitted document.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veltaworks/docintel/internal/attribution"
	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/dedup"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/embeddings"
	"github.com/veltaworks/docintel/internal/fingerprint"
)

// ResultFunc is called as each document finishes, from worker goroutines,
// serialized by the pipeline.
type ResultFunc func(IngestionResult)

// Pipeline wires the embedding generator, dedup engine, attribution
// resolver, and document store into the ingestion flow.
type Pipeline struct {
	embedder embeddings.Embedder
	store    docstore.Store
	resolver *attribution.Resolver
	engine   *dedup.Engine
	cfg      *config.Config
	locks    *keyedLocks

	resultMu sync.Mutex
	onResult ResultFunc
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	embedder embeddings.Embedder,
	store docstore.Store,
	resolver *attribution.Resolver,
	engine *dedup.Engine,
	cfg *config.Config,
) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		store:    store,
		resolver: resolver,
		engine:   engine,
		cfg:      cfg,
		locks:    newKeyedLocks(),
	}
}

// SetResultFunc sets the per-document completion callback.
func (p *Pipeline) SetResultFunc(fn ResultFunc) {
	p.onResult = fn
}

// Run ingests a batch. An invalid policy aborts the whole batch before any
// document is processed; every other failure is isolated to its document.
// Cancellation is cooperative and checked between documents: documents
// already persisted stay committed, the rest are rejected with the context
// error.
func (p *Pipeline) Run(ctx context.Context, inputs []DocumentInput, policyStr string) ([]IngestionResult, error) {
	policy, err := dedup.ParsePolicy(policyStr)
	if err != nil {
		return nil, err
	}

	results := make([]IngestionResult, len(inputs))

	concurrency := p.cfg.MaxConcurrency
	if concurrency < 1 {
		concurrency = 5
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, input := range inputs {
		if ctx.Err() != nil {
			results[i] = IngestionResult{Index: i, State: StateRejected, Error: ctx.Err().Error()}
			p.emit(results[i])
			continue
		}
		select {
		case <-ctx.Done():
			results[i] = IngestionResult{Index: i, State: StateRejected, Error: ctx.Err().Error()}
			p.emit(results[i])
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, in DocumentInput) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = p.processOne(ctx, i, in, policy)
			p.emit(results[i])
		}(i, input)
	}

	wg.Wait()
	return results, nil
}

func (p *Pipeline) emit(res IngestionResult) {
	if p.onResult == nil {
		return
	}
	p.resultMu.Lock()
	defer p.resultMu.Unlock()
	p.onResult(res)
}

// Preview reports the dedup decision ingestion would make for the input
// without persisting anything. It embeds the raw text exactly as Run does,
// so a dry run and a real run always agree.
func (p *Pipeline) Preview(ctx context.Context, in DocumentInput) (*dedup.Decision, error) {
	normalized := fingerprint.Normalize(in.Text)
	if normalized == "" {
		return nil, embeddings.ErrEmptyInput()
	}
	emb, err := embeddings.EmbedOne(ctx, p.embedder, in.Text)
	if err != nil {
		return nil, err
	}
	return p.engine.Check(ctx, fingerprint.Hash(normalized), normalized, emb, in.ProjectRef, dedup.PolicySkip)
}

// processOne runs a single document through the state machine. Any stage
// failure terminates only this document's pipeline instance.
func (p *Pipeline) processOne(ctx context.Context, index int, in DocumentInput, policy dedup.Policy) IngestionResult {
	res := IngestionResult{Index: index, State: StateReceived}

	docType := in.DocumentType
	switch {
	case docType == "":
		docType = docstore.DocTypeOther
	case !docstore.ValidType(docType):
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unknown document type %q, using %q", docType, docstore.DocTypeOther))
		docType = docstore.DocTypeOther
	}

	normalized := fingerprint.Normalize(in.Text)
	if normalized == "" {
		return reject(res, embeddings.ErrEmptyInput())
	}
	res.State = StateNormalized

	var emb []float32
	err := withRetry(ctx, p.cfg.RetryAttempts, func() error {
		var embedErr error
		emb, embedErr = embeddings.EmbedOne(ctx, p.embedder, in.Text)
		return embedErr
	})
	if err != nil {
		return reject(res, err)
	}
	res.State = StateEmbedded

	hash := fingerprint.Hash(normalized)
	signature := fingerprint.Signature(emb)

	// Serialize dedup-check-then-write per project scope so concurrent
	// near-identical documents cannot both decide "no candidate found".
	unlock := p.locks.acquire(in.ProjectRef)
	defer unlock()

	decision, err := p.engine.Check(ctx, hash, normalized, emb, in.ProjectRef, policy)
	if err != nil {
		return reject(res, err)
	}
	res.State = StateDuplicateChecked
	res.Action = decision.Action
	res.Warnings = append(res.Warnings, decision.Warnings...)
	if decision.Candidate != nil {
		res.MatchedDocumentID = decision.Candidate.ID
	}

	if decision.Action == dedup.ActionSkipped {
		res.State = StateSkipped
		res.ProjectRef = decision.Candidate.ProjectRef
		res.ClientRef = decision.Candidate.ClientRef
		res.Confidence = decision.Candidate.AttributionConfidence
		return res
	}

	outcome, err := p.resolveAttribution(ctx, in, emb)
	if err != nil {
		return reject(res, err)
	}
	res.State = StateAttributed
	res.Warnings = append(res.Warnings, outcome.Warnings...)

	now := time.Now().UTC()
	doc := p.buildDocument(in, decision, policy, docType, normalized, emb, hash, signature, outcome, now)

	err = withRetry(ctx, p.cfg.RetryAttempts, func() error {
		return p.store.Put(ctx, doc)
	})
	if err != nil {
		return reject(res, err)
	}

	if decision.Action == dedup.ActionReplaced {
		if err := p.store.MarkSuperseded(ctx, decision.Candidate.ID, doc.ID); err != nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("replaced document %s could not be marked superseded: %v", decision.Candidate.ID, err))
		}
	}

	res.State = StatePersisted
	res.DocumentID = doc.ID
	res.ProjectRef = doc.ProjectRef
	res.ClientRef = doc.ClientRef
	res.Confidence = doc.AttributionConfidence
	res.NeedsReview = doc.NeedsReview
	return res
}

// resolveAttribution runs the resolver unless the caller asserted the
// project scope, which is taken as authoritative.
func (p *Pipeline) resolveAttribution(ctx context.Context, in DocumentInput, emb []float32) (*attribution.Outcome, error) {
	if in.ProjectRef != "" {
		conf := 1.0
		return &attribution.Outcome{
			ProjectRef: in.ProjectRef,
			Confidence: conf,
			Assigned:   true,
		}, nil
	}
	return p.resolver.Resolve(ctx, in.Title, in.SourceName, in.Text, emb)
}

// buildDocument produces the row to persist for the decided action.
func (p *Pipeline) buildDocument(
	in DocumentInput,
	decision *dedup.Decision,
	policy dedup.Policy,
	docType docstore.DocumentType,
	normalized string,
	emb []float32,
	hash, signature string,
	outcome *attribution.Outcome,
	now time.Time,
) *docstore.Document {
	source := docstore.SourceMeta{
		FileName: in.SourceName,
		Size:     in.Size,
		MimeType: in.MimeType,
	}
	if source.Size == 0 {
		source.Size = int64(len(in.Text))
	}

	if decision.Candidate != nil && policy == dedup.PolicyMergeMetadata {
		// Structured metadata merges, new values win; content and
		// embedding stay untouched.
		doc := *decision.Candidate
		if in.Title != "" {
			doc.Title = in.Title
		}
		if in.DocumentType != "" {
			doc.DocumentType = docType
		}
		if in.SourceName != "" {
			doc.Source = source
		}
		// An unassigned fresh resolution is an absent value, not a
		// conflict: it must not wipe attribution a previous ingestion
		// already established.
		if outcome.Assigned {
			applyAttribution(&doc, outcome)
		}
		doc.UpdatedAt = now
		return &doc
	}

	if decision.Candidate != nil && policy == dedup.PolicyUpdate {
		// Overwrite in place, id and created_at unchanged.
		doc := *decision.Candidate
		doc.Title = in.Title
		doc.Content = in.Text
		doc.NormalizedText = normalized
		doc.DocumentType = docType
		doc.Embedding = emb
		doc.ContentHash = hash
		doc.NearDupSignature = signature
		doc.Source = source
		applyAttribution(&doc, outcome)
		doc.UpdatedAt = now
		return &doc
	}

	// created, versioned, replaced: a fresh row.
	doc := &docstore.Document{
		ID:               uuid.NewString(),
		Title:            in.Title,
		Content:          in.Text,
		NormalizedText:   normalized,
		DocumentType:     docType,
		Embedding:        emb,
		ContentHash:      hash,
		NearDupSignature: signature,
		Source:           source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if decision.Action == dedup.ActionVersioned {
		doc.VersionOf = decision.Candidate.ID
	}
	applyAttribution(doc, outcome)
	return doc
}

func applyAttribution(doc *docstore.Document, outcome *attribution.Outcome) {
	doc.NeedsReview = outcome.NeedsReview
	if outcome.Assigned {
		doc.ProjectRef = outcome.ProjectRef
		doc.ClientRef = outcome.ClientRef
	} else {
		doc.ProjectRef = ""
		doc.ClientRef = ""
	}
	if outcome.Assigned || outcome.Confidence > 0 {
		conf := outcome.Confidence
		doc.AttributionConfidence = &conf
	} else {
		doc.AttributionConfidence = nil
	}
}

func reject(res IngestionResult, err error) IngestionResult {
	res.State = StateRejected
	res.Action = ""
	res.Error = err.Error()
	return res
}
