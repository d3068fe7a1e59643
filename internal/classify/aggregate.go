package classify

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/urlsentry/urlsentry/internal/model"
)

// parallelThreshold is the request count above which Aggregate shards the
// classification across workers. Small sets are cheaper to classify inline
// than to schedule.
const parallelThreshold = 32

// Result is the aggregator's full output: every classification, the
// suspicious subset, and the condensed summary.
type Result struct {
	// Classified holds one classification per input record, in input order.
	Classified []model.Classification

	// Suspicious is the subset of Classified flagged suspicious,
	// preserving input order.
	Suspicious []model.Classification

	// Summary condenses the suspicious subset into the totals the scorer
	// consumes.
	Summary model.SandboxSummary
}

// Aggregator folds classified request sets into sandbox summaries.
type Aggregator struct {
	classifier *Classifier

	// workers bounds the classification goroutines for large request sets.
	workers int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithWorkers sets the number of concurrent classification workers used
// for large request sets. Defaults to GOMAXPROCS.
func WithWorkers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewAggregator creates an Aggregator classifying with the given classifier.
func NewAggregator(classifier *Classifier, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		classifier: classifier,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate classifies every record against the origin domain and reduces
// the results into a summary. The reduction is a commutative, associative
// fold, so large inputs are classified in parallel and merged afterwards
// with no ordering requirement; the returned slices are nonetheless in
// input order for stable reports.
//
// An empty record set is valid and yields a summary with OverallSafe.
func (a *Aggregator) Aggregate(records []model.NetworkRequestRecord, originDomain string) Result {
	classified := make([]model.Classification, len(records))

	if len(records) > parallelThreshold && a.workers > 1 {
		// Each goroutine writes a distinct index; no shared state.
		g := new(errgroup.Group)
		g.SetLimit(a.workers)
		for i, record := range records {
			g.Go(func() error {
				classified[i] = a.classifier.Classify(record, originDomain)
				return nil
			})
		}
		// Workers never return errors; Wait only joins them.
		_ = g.Wait()
	} else {
		for i, record := range records {
			classified[i] = a.classifier.Classify(record, originDomain)
		}
	}

	return fold(classified)
}

// fold reduces classifications into the final Result. Only suspicious
// classifications contribute to the counts, histogram, and total score;
// non-suspicious traffic is recorded but priced at zero.
func fold(classified []model.Classification) Result {
	result := Result{
		Classified: classified,
		Summary: model.SandboxSummary{
			TotalRequests: len(classified),
			OverallRisk:   model.OverallSafe,
		},
	}

	var worst model.RiskLevel
	hasSuspicious := false

	for _, c := range classified {
		if !c.Suspicious {
			continue
		}
		result.Suspicious = append(result.Suspicious, c)
		result.Summary.SuspiciousCount++
		result.Summary.TotalRiskScore += c.RiskScore

		switch c.RiskLevel {
		case model.RiskCritical:
			result.Summary.CriticalCount++
		case model.RiskHigh:
			result.Summary.HighCount++
		}

		if result.Summary.CategoryHistogram == nil {
			result.Summary.CategoryHistogram = make(map[model.Category]int)
		}
		for _, cat := range c.Categories {
			result.Summary.CategoryHistogram[cat]++
		}

		if !hasSuspicious || c.RiskLevel > worst {
			worst = c.RiskLevel
		}
		hasSuspicious = true
	}

	if hasSuspicious {
		result.Summary.OverallRisk = model.OverallRiskFor(worst)
	}

	return result
}
