package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/config"
	"github.com/tohum-ai/tohum/internal/embeddings"
	"github.com/tohum-ai/tohum/internal/searchindex"
)

// NewSearchIndex opens the vector index named by cfg.VectorStore. The
// weaviate backend gets its class created on first use; chromem persists
// under cfg.ChromemPath.
func NewSearchIndex(ctx context.Context, cfg *config.Config, emb embeddings.Provider, log zerolog.Logger) (searchindex.Index, error) {
	timeout := time.Duration(cfg.IndexTimeoutS) * time.Second
	switch cfg.VectorStore {
	case "chromem":
		log.Info().Str("path", cfg.ChromemPath).Str("collection", cfg.Collection).
			Msg("opening chromem index")
		idx, err := searchindex.NewChromemIndex(cfg.ChromemPath, cfg.Collection, emb, timeout)
		if err != nil {
			return nil, fmt.Errorf("open chromem index: %w", err)
		}
		return idx, nil
	case "weaviate":
		log.Info().Str("url", cfg.WeaviateURL).Msg("opening weaviate index")
		if err := searchindex.BootstrapWeaviate(ctx, cfg.WeaviateURL); err != nil {
			return nil, fmt.Errorf("bootstrap weaviate: %w", err)
		}
		idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL, emb, timeout)
		if err != nil {
			return nil, fmt.Errorf("open weaviate index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported VECTOR_STORE: %s", cfg.VectorStore)
	}
}
