// File: internal/guardrail/rail_test.go
package guardrail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/metric"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/refstore"
)

// recordingMetric wraps a real metric and counts Preprocess calls.
type recordingMetric struct {
	metric.Metric
	preprocessed map[string]int
}

func newRecordingMetric(inner metric.Metric) *recordingMetric {
	return &recordingMetric{Metric: inner, preprocessed: make(map[string]int)}
}

func (m *recordingMetric) Preprocess(ctx context.Context, key string, candidates []string) error {
	m.preprocessed[key]++
	return m.Metric.Preprocess(ctx, key, candidates)
}

// failingMetric always errors on Search.
type failingMetric struct{}

func (failingMetric) Name() string { return "failing" }
func (failingMetric) Preprocess(ctx context.Context, key string, candidates []string) error {
	return nil
}
func (failingMetric) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]metric.Match, error) {
	return nil, errors.New("backend unavailable")
}

// panickingMetric panics on Search.
type panickingMetric struct{}

func (panickingMetric) Name() string { return "panicking" }
func (panickingMetric) Preprocess(ctx context.Context, key string, candidates []string) error {
	return nil
}
func (panickingMetric) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]metric.Match, error) {
	panic("boom")
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()
	store := refstore.New(map[string][]string{"country": {"France"}})

	tests := []struct {
		name    string
		metrics []metric.Metric
		store   *refstore.Store
	}{
		{"No metrics", nil, store},
		{"Nil store", []metric.Metric{metric.NewLevenshtein()}, nil},
		{"Nil metric", []metric.Metric{nil}, store},
		{"Duplicate names", []metric.Metric{metric.NewLevenshtein(), metric.NewLevenshtein()}, store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.metrics, tt.store)
			if err == nil {
				t.Fatal("New() should fail")
			}
			var cfgErr *ErrConfiguration
			if !errors.As(err, &cfgErr) {
				t.Errorf("New() error = %T, want *ErrConfiguration", err)
			}
		})
	}
}

func TestNewWarmsCaches(t *testing.T) {
	rec := newRecordingMetric(metric.NewTokenSetRatio())
	store := refstore.New(map[string][]string{
		"country": {"France", "Brazil"},
		"status":  {"shipped"},
	})

	if _, err := New(context.Background(), []metric.Metric{rec}, store); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if rec.preprocessed["country"] != 1 || rec.preprocessed["status"] != 1 {
		t.Errorf("Preprocess calls = %v, want one per reference column", rec.preprocessed)
	}
}

func TestAnalyzeTopSuggestion(t *testing.T) {
	store := refstore.New(map[string][]string{
		"country": {"United Kingdom", "Uganda", "Ukraine", "Kenya"},
	})
	rail, err := New(context.Background(), []metric.Metric{metric.NewJaroWinkler()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE country = 'UK'`, 2)

	if len(result.AnalyzedConditions) != 1 {
		t.Fatalf("AnalyzedConditions = %d, want 1", len(result.AnalyzedConditions))
	}
	cond := result.AnalyzedConditions[0]
	if cond.ColumnName != "country" || cond.Operator != "=" {
		t.Errorf("condition = %+v", cond)
	}
	if len(cond.AnalysesByMetric) != 1 {
		t.Fatalf("AnalysesByMetric = %d, want 1", len(cond.AnalysesByMetric))
	}
	analysis := cond.AnalysesByMetric[0]
	if analysis.QueryParameterValue != "UK" {
		t.Errorf("QueryParameterValue = %q, want UK", analysis.QueryParameterValue)
	}
	if len(analysis.Suggestions) != 2 {
		t.Fatalf("Suggestions = %d, want k=2", len(analysis.Suggestions))
	}
	if analysis.Suggestions[0].SuggestedValue != "United Kingdom" {
		t.Errorf("top suggestion = %q, want United Kingdom", analysis.Suggestions[0].SuggestedValue)
	}
	if analysis.Suggestions[0].SimilarityScore < analysis.Suggestions[1].SimilarityScore {
		t.Error("suggestions not sorted by descending score")
	}
}

func TestAnalyzeInListProducesPerValueAnalyses(t *testing.T) {
	store := refstore.New(map[string][]string{
		"country": {"United Kingdom", "United States", "Uganda"},
	})
	metrics := []metric.Metric{metric.NewLevenshtein(), metric.NewJaroWinkler()}
	rail, err := New(context.Background(), metrics, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE country IN ('UK', 'US')`, 1)

	if len(result.AnalyzedConditions) != 1 {
		t.Fatalf("AnalyzedConditions = %d, want 1", len(result.AnalyzedConditions))
	}
	analyses := result.AnalyzedConditions[0].AnalysesByMetric
	// Two values times two metrics, value-major order.
	if len(analyses) != 4 {
		t.Fatalf("AnalysesByMetric = %d, want 4", len(analyses))
	}
	wantOrder := []struct{ value, metricName string }{
		{"UK", "levenshtein"},
		{"UK", "jaro_winkler"},
		{"US", "levenshtein"},
		{"US", "jaro_winkler"},
	}
	for i, want := range wantOrder {
		if analyses[i].QueryParameterValue != want.value || analyses[i].MetricName != want.metricName {
			t.Errorf("analyses[%d] = (%s, %s), want (%s, %s)",
				i, analyses[i].QueryParameterValue, analyses[i].MetricName, want.value, want.metricName)
		}
		if len(analyses[i].Suggestions) != 1 {
			t.Errorf("analyses[%d] has %d suggestions, want k=1", i, len(analyses[i].Suggestions))
		}
	}
}

func TestAnalyzeNoWhereClause(t *testing.T) {
	store := refstore.New(map[string][]string{"country": {"France"}})
	rail, err := New(context.Background(), []metric.Metric{metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT x FROM t`, 0)

	if len(result.AnalyzedConditions) != 0 {
		t.Errorf("AnalyzedConditions = %+v, want empty", result.AnalyzedConditions)
	}
	if len(result.Warnings) == 0 {
		t.Error("Warnings empty, want a no-WHERE warning")
	}
	if result.AnalyzedConditions == nil {
		t.Error("AnalyzedConditions must be non-nil so it serializes as []")
	}
}

func TestAnalyzeUnknownColumnExcludedWithWarning(t *testing.T) {
	store := refstore.New(map[string][]string{"country": {"France"}})
	rail, err := New(context.Background(), []metric.Metric{metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(),
		`SELECT * FROM t WHERE country = 'Frnce' AND status = 'shipped'`, 1)

	if len(result.AnalyzedConditions) != 1 || result.AnalyzedConditions[0].ColumnName != "country" {
		t.Errorf("AnalyzedConditions = %+v, want only country", result.AnalyzedConditions)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "status") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want one naming the status column", result.Warnings)
	}
}

func TestAnalyzeEmptyReferenceListIsNotAnError(t *testing.T) {
	store := refstore.New(map[string][]string{"status": {}})
	rail, err := New(context.Background(), []metric.Metric{metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE status = 'shipped'`, 3)

	if len(result.AnalyzedConditions) != 1 {
		t.Fatalf("AnalyzedConditions = %d, want 1", len(result.AnalyzedConditions))
	}
	analyses := result.AnalyzedConditions[0].AnalysesByMetric
	if len(analyses) != 1 || len(analyses[0].Suggestions) != 0 {
		t.Errorf("analyses = %+v, want one entry with an empty suggestion list", analyses)
	}
}

func TestAnalyzeMetricFailureDegradesToWarning(t *testing.T) {
	store := refstore.New(map[string][]string{"country": {"France"}})
	rail, err := New(context.Background(),
		[]metric.Metric{failingMetric{}, metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE country = 'Frnce'`, 1)

	analyses := result.AnalyzedConditions[0].AnalysesByMetric
	if len(analyses) != 1 || analyses[0].MetricName != "levenshtein" {
		t.Errorf("analyses = %+v, want only the healthy metric's entry", analyses)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "failing") && strings.Contains(w, "backend unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want one for the failing metric", result.Warnings)
	}
}

func TestAnalyzeSurvivesPanickingMetric(t *testing.T) {
	store := refstore.New(map[string][]string{"country": {"France"}})
	rail, err := New(context.Background(),
		[]metric.Metric{panickingMetric{}, metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE country = 'Frnce'`, 1)

	analyses := result.AnalyzedConditions[0].AnalysesByMetric
	if len(analyses) != 1 || analyses[0].MetricName != "levenshtein" {
		t.Errorf("analyses = %+v, want only the healthy metric's entry", analyses)
	}
}

func TestAnalyzeDefaultTopK(t *testing.T) {
	values := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	store := refstore.New(map[string][]string{"code": values})
	rail, err := New(context.Background(), []metric.Metric{metric.NewLevenshtein()}, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE code = 'a0'`, 0)

	suggestions := result.AnalyzedConditions[0].AnalysesByMetric[0].Suggestions
	if len(suggestions) != DefaultTopK {
		t.Errorf("suggestions = %d, want DefaultTopK %d for k<=0", len(suggestions), DefaultTopK)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	store := refstore.New(map[string][]string{
		"country": {"France", "Brazil", "Japan", "Kenya"},
		"status":  {"shipped", "pending", "cancelled"},
	})
	metrics := []metric.Metric{metric.NewLevenshtein(), metric.NewJaroWinkler(), metric.NewTokenSetRatio()}
	rail, err := New(context.Background(), metrics, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	query := `SELECT * FROM t WHERE country IN ('Frnce', 'Brzil') AND status = 'shpped'`
	first, err := rail.Analyze(context.Background(), query, 2).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := rail.Analyze(context.Background(), query, 2).ToJSON()
		if err != nil {
			t.Fatalf("ToJSON() error = %v", err)
		}
		if next != first {
			t.Fatal("repeated Analyze produced different output for identical input")
		}
	}
}

func TestReload(t *testing.T) {
	rec := newRecordingMetric(metric.NewTokenSetRatio())
	rail, err := New(context.Background(), []metric.Metric{rec},
		refstore.New(map[string][]string{"country": {"France"}}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := rail.Reload(context.Background(),
		refstore.New(map[string][]string{"country": {"France", "Brazil"}})); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if rec.preprocessed["country"] != 2 {
		t.Errorf("Preprocess calls for country = %d, want 2 after Reload", rec.preprocessed["country"])
	}

	result := rail.Analyze(context.Background(), `SELECT * FROM t WHERE country = 'Brazl'`, 1)
	suggestions := result.AnalyzedConditions[0].AnalysesByMetric[0].Suggestions
	if len(suggestions) != 1 || suggestions[0].SuggestedValue != "Brazil" {
		t.Errorf("suggestions after Reload = %+v, want the newly added value", suggestions)
	}

	if err := rail.Reload(context.Background(), nil); err == nil {
		t.Error("Reload(nil) should fail")
	}
}
