// Package analytics rolls up stored document metadata into counts and a
// coarse activity trend. All reads go through the store's aggregation
// contract; nothing here touches embeddings.
package analytics

import (
	"context"
	"time"

	"github.com/veltaworks/docintel/internal/docstore"
)

// Trend classifies activity change between two adjacent trailing windows.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// DefaultTrendWindow is the length of each of the two compared windows.
const DefaultTrendWindow = 7 * 24 * time.Hour

// RecentActivity counts documents created within fixed trailing windows.
type RecentActivity struct {
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
	Last30d int `json:"last_30d"`
}

// Report is the full analytics rollup.
type Report struct {
	Total          int                           `json:"total"`
	ByType         map[docstore.DocumentType]int `json:"by_type"`
	ByDay          map[string]int                `json:"by_day"`
	RecentActivity RecentActivity                `json:"recent_activity"`
	Trend          Trend                         `json:"trend"`
}

// Aggregator computes reports against the store's latest committed snapshot.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	store  docstore.Store
	margin float64       // relative change below which the trend is stable
	window time.Duration // length of each compared trend window

	// now is swappable for tests.
	now func() time.Time
}

func NewAggregator(store docstore.Store, margin float64) *Aggregator {
	if margin <= 0 {
		margin = 0.10
	}
	return &Aggregator{
		store:  store,
		margin: margin,
		window: DefaultTrendWindow,
		now:    time.Now,
	}
}

// Overview aggregates all live documents matching f. The time bounds inside
// f further restrict every count, including the trailing windows.
func (a *Aggregator) Overview(ctx context.Context, f docstore.Filters) (*Report, error) {
	agg, err := a.store.Aggregate(ctx, f)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	report := &Report{
		Total:  agg.Total,
		ByType: agg.ByType,
		ByDay:  agg.ByDay,
	}

	windows := []struct {
		since time.Duration
		dst   *int
	}{
		{24 * time.Hour, &report.RecentActivity.Last24h},
		{7 * 24 * time.Hour, &report.RecentActivity.Last7d},
		{30 * 24 * time.Hour, &report.RecentActivity.Last30d},
	}
	for _, w := range windows {
		n, err := a.countBetween(ctx, f, now.Add(-w.since), time.Time{})
		if err != nil {
			return nil, err
		}
		*w.dst = n
	}

	later, err := a.countBetween(ctx, f, now.Add(-a.window), time.Time{})
	if err != nil {
		return nil, err
	}
	earlier, err := a.countBetween(ctx, f, now.Add(-2*a.window), now.Add(-a.window))
	if err != nil {
		return nil, err
	}
	report.Trend = classify(earlier, later, a.margin)

	return report, nil
}

// countBetween counts documents created in [after, before), layered on top
// of the caller's own time bounds when those are tighter.
func (a *Aggregator) countBetween(ctx context.Context, f docstore.Filters, after, before time.Time) (int, error) {
	if f.CreatedAfter.After(after) {
		after = f.CreatedAfter
	}
	if !f.CreatedBefore.IsZero() && (before.IsZero() || f.CreatedBefore.Before(before)) {
		before = f.CreatedBefore
	}
	agg, err := a.store.Aggregate(ctx, docstore.Filters{
		ProjectRef:    f.ProjectRef,
		DocumentType:  f.DocumentType,
		CreatedAfter:  after,
		CreatedBefore: before,
	})
	if err != nil {
		return 0, err
	}
	return agg.Total, nil
}

// classify compares two adjacent equal-length windows. A relative change
// within the margin in either direction is stable; an empty earlier window
// with any later activity is up.
func classify(earlier, later int, margin float64) Trend {
	if earlier == 0 {
		if later == 0 {
			return TrendStable
		}
		return TrendUp
	}
	change := float64(later-earlier) / float64(earlier)
	switch {
	case change > margin:
		return TrendUp
	case change < -margin:
		return TrendDown
	default:
		return TrendStable
	}
}
