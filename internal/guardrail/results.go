/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package guardrail

import (
	"encoding/json"
	"fmt"
)

// MatchSuggestion is one proposed replacement value with its normalized
// similarity score (1.0 = identical, 0.0 = no similarity).
type MatchSuggestion struct {
	SuggestedValue  string  `json:"suggested_value"`
	SimilarityScore float64 `json:"similarity_score"`
}

// DistanceMetricAnalysis holds one metric's ranked suggestions for one
// query parameter value, sorted by descending score.
type DistanceMetricAnalysis struct {
	MetricName          string            `json:"metric_name"`
	QueryParameterValue string            `json:"query_parameter_value"`
	Suggestions         []MatchSuggestion `json:"suggestions"`
}

// WhereClauseConditionAnalysis aggregates the per-metric analyses for one
// extracted WHERE-clause condition that had reference data.
type WhereClauseConditionAnalysis struct {
	ColumnName       string                   `json:"column_name"`
	Operator         string                   `json:"operator"`
	RawValueInQuery  string                   `json:"raw_value_in_query"`
	AnalysesByMetric []DistanceMetricAnalysis `json:"analyses_by_metric"`
}

// GuardRailAnalysisResult is the top-level outcome of analyzing one SQL
// statement. It is produced fresh per Analyze call; Warnings collects
// everything the analysis had to skip or degrade on.
type GuardRailAnalysisResult struct {
	OriginalQuery      string                         `json:"original_query"`
	AnalyzedConditions []WhereClauseConditionAnalysis `json:"analyzed_conditions"`
	Warnings           []string                       `json:"warnings,omitempty"`
}

// ToJSON serializes the result with indentation, preserving field order
// and the descending-score ordering of suggestions.
func (r *GuardRailAnalysisResult) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize analysis result: %w", err)
	}
	return string(data), nil
}

// ResultFromJSON deserializes a result previously produced by ToJSON.
func ResultFromJSON(data []byte) (*GuardRailAnalysisResult, error) {
	var result GuardRailAnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis result: %w", err)
	}
	return &result, nil
}
