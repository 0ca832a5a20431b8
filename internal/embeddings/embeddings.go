// Package embeddings resolves the text-embedding function used by the
// vector index, with ordered fallback across candidate models.
package embeddings

import "context"

// Provider produces vector representations for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
