package embeddings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/health"
)

// Candidate is one entry in the startup fallback chain.
type Candidate struct {
	Name     string
	Provider Provider
}

// Resolve probes candidates in order and returns the first one that works.
// Exhausting the list is fatal: the memory store cannot start without an
// embedding function. The resolved provider is used for the process
// lifetime; there is no mid-flight failover.
func Resolve(ctx context.Context, log zerolog.Logger, candidates ...Candidate) (Provider, error) {
	var lastErr error
	for _, c := range candidates {
		if c.Provider == nil {
			continue
		}
		if err := probe(ctx, c.Provider); err != nil {
			log.Warn().Str("model", c.Name).Err(err).Msg("embedding model unavailable, trying next")
			lastErr = err
			continue
		}
		log.Info().Str("model", c.Name).Msg("embedding model resolved")
		return c.Provider, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidates configured")
	}
	return nil, fmt.Errorf("resolve embedding provider: all candidates failed: %w", lastErr)
}

// probe prefers a specialized HealthPing, falling back to embedding a
// sample string.
func probe(ctx context.Context, p Provider) error {
	if hp, ok := p.(health.HealthPinger); ok {
		return hp.HealthPing(ctx)
	}
	vec, err := p.Embed(ctx, "startup-probe")
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return fmt.Errorf("provider returned empty embedding")
	}
	return nil
}
