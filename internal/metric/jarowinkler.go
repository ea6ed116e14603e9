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

const (
	winklerScaling   = 0.1
	winklerMaxPrefix = 4
)

// JaroWinkler scores candidates with Jaro similarity plus the Winkler
// bonus for shared prefixes, which suits column values that tend to agree
// on their leading characters (country names, product codes).
type JaroWinkler struct{}

var _ Metric = (*JaroWinkler)(nil)

func NewJaroWinkler() *JaroWinkler {
	return &JaroWinkler{}
}

func (m *JaroWinkler) Name() string {
	return "jaro_winkler"
}

// Preprocess is a no-op.
func (m *JaroWinkler) Preprocess(ctx context.Context, key string, candidates []string) error {
	return nil
}

func (m *JaroWinkler) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]Match, error) {
	query := []rune(queryValue)
	matches := make([]Match, len(candidates))
	for i, candidate := range candidates {
		matches[i] = Match{Value: candidate, Score: jaroWinkler(query, []rune(candidate))}
	}
	return topMatches(matches, k), nil
}

func jaroWinkler(a, b []rune) float64 {
	j := jaro(a, b)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && prefix < winklerMaxPrefix && a[prefix] == b[prefix] {
		prefix++
	}
	score := j + float64(prefix)*winklerScaling*(1.0-j)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func jaro(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	window := maxOf(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0

	for i := range a {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > len(b) {
			hi = len(b)
		}
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	j := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3.0
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
