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
	"strings"
	"sync"
	"unicode"
)

// TokenSetRatio compares values as sets of lowercased alphanumeric
// tokens, which makes it order-insensitive for multi-word values
// ("Kingdom United" still matches "United Kingdom"). Preprocess caches
// the tokenized candidates per reference key.
type TokenSetRatio struct {
	mu    sync.RWMutex
	cache map[string][][]string
}

var _ Metric = (*TokenSetRatio)(nil)

func NewTokenSetRatio() *TokenSetRatio {
	return &TokenSetRatio{cache: make(map[string][][]string)}
}

func (m *TokenSetRatio) Name() string {
	return "token_set_ratio"
}

// Preprocess tokenizes the candidate list and stores it under key,
// replacing any earlier state for that key.
func (m *TokenSetRatio) Preprocess(ctx context.Context, key string, candidates []string) error {
	tokenized := make([][]string, len(candidates))
	for i, candidate := range candidates {
		tokenized[i] = tokenize(candidate)
	}
	m.mu.Lock()
	m.cache[key] = tokenized
	m.mu.Unlock()
	return nil
}

func (m *TokenSetRatio) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]Match, error) {
	m.mu.RLock()
	tokenized, ok := m.cache[key]
	m.mu.RUnlock()
	if !ok || len(tokenized) != len(candidates) {
		tokenized = make([][]string, len(candidates))
		for i, candidate := range candidates {
			tokenized[i] = tokenize(candidate)
		}
	}

	queryTokens := tokenize(queryValue)
	matches := make([]Match, len(candidates))
	for i, candidate := range candidates {
		matches[i] = Match{Value: candidate, Score: tokenSetRatio(queryTokens, tokenized[i])}
	}
	return topMatches(matches, k), nil
}

// tokenize lowercases, splits on non-alphanumeric runes, deduplicates and
// sorts.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// tokenSetRatio is the classic fuzzy token-set score: compare the sorted
// token intersection against each side's intersection-plus-remainder and
// take the best normalized edit similarity of the three pairings.
func tokenSetRatio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	inA := make(map[string]bool, len(a))
	for _, t := range a {
		inA[t] = true
	}
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}

	var common, onlyA, onlyB []string
	for _, t := range a {
		if inB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range b {
		if !inA[t] {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := levenshteinSimilarity([]rune(base), []rune(withA))
	if s := levenshteinSimilarity([]rune(base), []rune(withB)); s > best {
		best = s
	}
	if s := levenshteinSimilarity([]rune(withA), []rune(withB)); s > best {
		best = s
	}
	return best
}
