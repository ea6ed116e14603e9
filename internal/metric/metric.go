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

import (
	"context"
	"sort"
)

// Match pairs a candidate value with its similarity score. Scores are
// normalized to [0.0, 1.0] where 1.0 means identical.
type Match struct {
	Value string
	Score float64
}

// Metric scores the similarity between a query value and a set of
// reference candidates.
//
// Preprocess is an optional, re-callable warm-up over a named reference
// set. Calling it again for the same key replaces any cached state.
// Metrics without precomputation needs implement it as a no-op.
//
// Search returns the top k candidates by descending score. Ties keep the
// candidates' original order. If a Preprocess cache exists for key it is
// used instead of recomputing from candidates, and the results must be
// identical either way.
type Metric interface {
	Name() string
	Preprocess(ctx context.Context, key string, candidates []string) error
	Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]Match, error)
}

// topMatches ranks matches by descending score, keeping input order for
// equal scores, and truncates to k. A k beyond len(matches) returns all.
func topMatches(matches []Match, k int) []Match {
	if k < 0 {
		k = 0
	}
	ranked := make([]Match, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
