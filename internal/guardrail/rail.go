// File: internal/guardrail/rail.go
package guardrail

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/extractor"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/metric"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/refstore"
)

// DefaultTopK is the number of suggestions requested when the caller does
// not specify k.
const DefaultTopK = 5

// Rail analyzes literal values in SQL WHERE clauses against reference
// data and proposes the closest valid values per registered metric. It is
// advisory only: it never executes or rewrites the query.
type Rail struct {
	metrics []metric.Metric
	store   *refstore.Store
}

// New constructs a Rail from an ordered list of metrics and a reference
// store, then warms every (column, metric) cache so analysis never pays
// the preprocessing cost. Misconfiguration fails construction; individual
// preprocess failures are isolated and only logged, since the affected
// metric can still compute from raw candidates at search time.
func New(ctx context.Context, metrics []metric.Metric, store *refstore.Store) (*Rail, error) {
	if len(metrics) == 0 {
		return nil, &ErrConfiguration{Msg: "at least one distance metric is required"}
	}
	if store == nil {
		return nil, &ErrConfiguration{Msg: "reference store is required"}
	}
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if m == nil {
			return nil, &ErrConfiguration{Msg: "nil metric in metric list"}
		}
		if seen[m.Name()] {
			return nil, &ErrConfiguration{Msg: fmt.Sprintf("duplicate metric name %q", m.Name())}
		}
		seen[m.Name()] = true
	}

	r := &Rail{metrics: metrics, store: store}
	r.warmCaches(ctx)
	return r, nil
}

// Metrics returns the registered metrics in registration order.
func (r *Rail) Metrics() []metric.Metric {
	out := make([]metric.Metric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Reload swaps in a new reference store and re-runs preprocessing.
// Reference data added after construction is not picked up automatically;
// this is the explicit path for it. Must not run concurrently with
// Analyze.
func (r *Rail) Reload(ctx context.Context, store *refstore.Store) error {
	if store == nil {
		return &ErrConfiguration{Msg: "reference store is required"}
	}
	r.store = store
	r.warmCaches(ctx)
	return nil
}

func (r *Rail) warmCaches(ctx context.Context) {
	startTime := time.Now()
	for _, column := range r.store.Columns() {
		values, _ := r.store.Values(column)
		for _, m := range r.metrics {
			if err := m.Preprocess(ctx, column, values); err != nil {
				log.Printf("WARN: Metric[%s] preprocess failed for column %q: %v", m.Name(), column, err)
			}
		}
	}
	log.Printf("INFO: Preprocessed %d reference column(s) across %d metric(s) in %s.",
		r.store.Len(), len(r.metrics), time.Since(startTime))
}

type taskKey struct {
	cond, value, metric int
}

type taskResult struct {
	analysis DistanceMetricAnalysis
	err      error
}

// Analyze extracts the WHERE-clause conditions of sqlText and ranks the
// top k reference values for each (condition value, metric) pair. It
// never returns an error: malformed SQL, missing reference data and
// failing metric calls all degrade to warnings on the result. k <= 0
// selects DefaultTopK.
func (r *Rail) Analyze(ctx context.Context, sqlText string, k int) *GuardRailAnalysisResult {
	startTime := time.Now()
	if k <= 0 {
		k = DefaultTopK
	}

	conditions, warnings := extractor.Extract(sqlText)

	var included []extractor.Condition
	for _, cond := range conditions {
		if _, ok := r.store.Values(cond.Column); !ok {
			warnings = append(warnings, fmt.Sprintf("no reference data for column %s", cond.Column))
			continue
		}
		included = append(included, cond)
	}

	// Searches across (condition, value, metric) triples are independent,
	// so they fan out concurrently; the result map is keyed by index
	// triple and reassembled deterministically below regardless of
	// completion order.
	results := make(map[taskKey]taskResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for ci, cond := range included {
		refValues, _ := r.store.Values(cond.Column)
		for vi, value := range cond.Values {
			for mi, m := range r.metrics {
				wg.Add(1)
				go func(key taskKey, m metric.Metric, column, value string, refs []string) {
					defer wg.Done()
					analysis, err := searchOne(ctx, m, column, value, refs, k)
					mu.Lock()
					results[key] = taskResult{analysis: analysis, err: err}
					mu.Unlock()
				}(taskKey{ci, vi, mi}, m, cond.Column, value, refValues)
			}
		}
	}
	wg.Wait()

	analyzed := make([]WhereClauseConditionAnalysis, 0, len(included))
	for ci, cond := range included {
		condAnalysis := WhereClauseConditionAnalysis{
			ColumnName:       cond.Column,
			Operator:         cond.Operator,
			RawValueInQuery:  cond.RawText,
			AnalysesByMetric: make([]DistanceMetricAnalysis, 0, len(cond.Values)*len(r.metrics)),
		}
		for vi, value := range cond.Values {
			for mi, m := range r.metrics {
				res := results[taskKey{ci, vi, mi}]
				if res.err != nil {
					failure := &ErrMetricFailure{Metric: m.Name(), Column: cond.Column, Value: value, Err: res.err}
					log.Printf("WARN: %v", failure)
					warnings = append(warnings, failure.Error())
					continue
				}
				condAnalysis.AnalysesByMetric = append(condAnalysis.AnalysesByMetric, res.analysis)
			}
		}
		analyzed = append(analyzed, condAnalysis)
	}

	log.Printf("INFO: Analyzed %d condition(s) with %d metric(s) in %s.",
		len(analyzed), len(r.metrics), time.Since(startTime))

	return &GuardRailAnalysisResult{
		OriginalQuery:      sqlText,
		AnalyzedConditions: analyzed,
		Warnings:           warnings,
	}
}

// searchOne runs a single metric search, converting any failure
// (including a panicking metric implementation) into an error so one bad
// pair never aborts the rest of the analysis.
func searchOne(ctx context.Context, m metric.Metric, column, value string, refs []string, k int) (analysis DistanceMetricAnalysis, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("metric panicked: %v", rec)
		}
	}()

	matches, err := m.Search(ctx, value, refs, k, column)
	if err != nil {
		return DistanceMetricAnalysis{}, err
	}

	suggestions := make([]MatchSuggestion, len(matches))
	for i, match := range matches {
		suggestions[i] = MatchSuggestion{SuggestedValue: match.Value, SimilarityScore: match.Score}
	}
	return DistanceMetricAnalysis{
		MetricName:          m.Name(),
		QueryParameterValue: value,
		Suggestions:         suggestions,
	}, nil
}
