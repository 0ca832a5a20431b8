// Package mock provides a deterministic embeddings.Provider for tests and
// offline development. Embeddings are hash-derived unit vectors: identical
// text always maps to the identical vector.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

const defaultDimensions = 384

// Provider is a deterministic hash-based embedder.
type Provider struct {
	dimensions int
}

// New creates a mock provider with the default dimensionality.
func New() *Provider {
	return &Provider{dimensions: defaultDimensions}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		// LCG keeps the expansion deterministic per seed.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int { return p.dimensions }

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
