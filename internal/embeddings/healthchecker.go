package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/health"
)

// NewHealthChecker wraps a resolved provider into a periodic health checker.
// Providers with a specialized HealthPing are probed through it; others are
// probed by embedding a sample string.
func NewHealthChecker(p Provider, log zerolog.Logger, probeTimeout time.Duration) health.HealthChecker {
	return health.NewPingChecker("embedder", pingAdapter{p}, log, probeTimeout)
}

type pingAdapter struct{ p Provider }

func (a pingAdapter) HealthPing(ctx context.Context) error {
	if hp, ok := a.p.(health.HealthPinger); ok {
		return hp.HealthPing(ctx)
	}
	vec, err := a.p.Embed(ctx, "health-check")
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedder returned empty vector")
	}
	return nil
}
