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
package metric

import "context"

// Levenshtein scores candidates by normalized edit distance: a distance
// of d over strings of maximum rune length L maps to 1 - d/L.
type Levenshtein struct{}

var _ Metric = (*Levenshtein)(nil)

func NewLevenshtein() *Levenshtein {
	return &Levenshtein{}
}

func (m *Levenshtein) Name() string {
	return "levenshtein"
}

// Preprocess is a no-op: raw edit distance has nothing to precompute.
func (m *Levenshtein) Preprocess(ctx context.Context, key string, candidates []string) error {
	return nil
}

func (m *Levenshtein) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]Match, error) {
	query := []rune(queryValue)
	matches := make([]Match, len(candidates))
	for i, candidate := range candidates {
		matches[i] = Match{Value: candidate, Score: levenshteinSimilarity(query, []rune(candidate))}
	}
	return topMatches(matches, k), nil
}

func levenshteinSimilarity(a, b []rune) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein calculates the edit distance between two rune slices using
// the full dynamic-programming matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = minOf(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}
	return matrix[len(a)][len(b)]
}

func minOf(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
