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
	"fmt"
	"math"
	"sync"
)

// EmbedFunc turns a batch of texts into vector representations. The
// metric depends only on this function, never on a specific model.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// SemanticConfig enumerates the recognized options for the semantic
// metric.
type SemanticConfig struct {
	// Embedder supplies the vectors. Required.
	Embedder EmbedFunc
	// SimilarityFloor drops suggestions scoring below it. Zero keeps all.
	SimilarityFloor float64
	// Name overrides the reported metric name, for running two semantic
	// metrics with different models side by side.
	Name string
}

// Semantic scores candidates by cosine similarity between embedding
// vectors. Preprocess embeds a reference set once and caches the vectors
// per key; Search then only embeds the query value.
type Semantic struct {
	cfg   SemanticConfig
	mu    sync.RWMutex
	cache map[string][][]float32
}

var _ Metric = (*Semantic)(nil)

// NewSemantic validates the configuration. A missing embedder is a
// programmer error and fails construction.
func NewSemantic(cfg SemanticConfig) (*Semantic, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("semantic metric requires an embedding function")
	}
	if cfg.SimilarityFloor < 0 || cfg.SimilarityFloor > 1 {
		return nil, fmt.Errorf("semantic metric similarity floor must be in [0,1], got %v", cfg.SimilarityFloor)
	}
	if cfg.Name == "" {
		cfg.Name = "semantic"
	}
	return &Semantic{cfg: cfg, cache: make(map[string][][]float32)}, nil
}

func (m *Semantic) Name() string {
	return m.cfg.Name
}

// Preprocess embeds the candidate list and stores the vectors under key,
// replacing any earlier state for that key.
func (m *Semantic) Preprocess(ctx context.Context, key string, candidates []string) error {
	vectors, err := m.embed(ctx, candidates)
	if err != nil {
		return fmt.Errorf("failed to embed %d candidates for key %q: %w", len(candidates), key, err)
	}
	m.mu.Lock()
	m.cache[key] = vectors
	m.mu.Unlock()
	return nil
}

func (m *Semantic) Search(ctx context.Context, queryValue string, candidates []string, k int, key string) ([]Match, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	vectors, ok := m.cache[key]
	m.mu.RUnlock()
	if !ok || len(vectors) != len(candidates) {
		fresh, err := m.embed(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to embed candidates for key %q: %w", key, err)
		}
		vectors = fresh
	}

	queryVectors, err := m.embed(ctx, []string{queryValue})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query value %q: %w", queryValue, err)
	}
	queryVec := queryVectors[0]

	matches := make([]Match, 0, len(candidates))
	for i, candidate := range candidates {
		score := cosineScore(queryVec, vectors[i])
		if m.cfg.SimilarityFloor > 0 && score < m.cfg.SimilarityFloor {
			continue
		}
		matches = append(matches, Match{Value: candidate, Score: score})
	}
	return topMatches(matches, k), nil
}

func (m *Semantic) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := m.cfg.Embedder(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// cosineScore maps cosine similarity from [-1,1] into the [0,1] score
// contract via (c+1)/2, clamped against floating-point drift.
func cosineScore(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	score := (cos + 1.0) / 2.0
	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}
