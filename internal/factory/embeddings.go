package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/config"
	"github.com/tohum-ai/tohum/internal/embeddings"
	"github.com/tohum-ai/tohum/internal/embeddings/mock"
	"github.com/tohum-ai/tohum/internal/embeddings/ollama"
)

// NewEmbeddingProvider resolves the configured embedding backend. For the
// ollama provider the primary model is probed first and the fallback model
// takes over when the primary is not served; only a fully exhausted
// candidate list is an error.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (embeddings.Provider, error) {
	switch cfg.EmbedProvider {
	case "ollama":
		candidates := []embeddings.Candidate{
			{Name: cfg.EmbedModel, Provider: ollama.New(cfg.OllamaURL, cfg.EmbedModel)},
		}
		if cfg.EmbedFallbackModel != "" && cfg.EmbedFallbackModel != cfg.EmbedModel {
			candidates = append(candidates, embeddings.Candidate{
				Name:     cfg.EmbedFallbackModel,
				Provider: ollama.New(cfg.OllamaURL, cfg.EmbedFallbackModel),
			})
		}
		return embeddings.Resolve(ctx, log, candidates...)
	case "mock":
		log.Warn().Msg("using deterministic mock embeddings; similarity scores are not meaningful")
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unsupported EMBED_PROVIDER: %s", cfg.EmbedProvider)
	}
}
