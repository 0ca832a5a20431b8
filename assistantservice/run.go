// Package assistantservice wires configuration, storage, the vector index,
// embeddings, services, and the HTTP server into a running process.
package assistantservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/api"
	"github.com/tohum-ai/tohum/internal/config"
	"github.com/tohum-ai/tohum/internal/embeddings"
	"github.com/tohum-ai/tohum/internal/factory"
	"github.com/tohum-ai/tohum/internal/health"
	"github.com/tohum-ai/tohum/internal/logger"
	"github.com/tohum-ai/tohum/internal/searchindex"
	"github.com/tohum-ai/tohum/internal/services"
	"github.com/tohum-ai/tohum/internal/store"
)

const (
	healthProbeTimeout = 2 * time.Second
	healthInterval     = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Run starts the assistant backend HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("tohum-assistant")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("http_port", cfg.HTTPPort).
		Msg("Assistant backend starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, idx, embProvider, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	memorySvc := services.NewMemoryService(st, idx, log, cfg.SearchTopK, cfg.ListLimit)
	chatSvc := services.NewChatService(memorySvc, log, cfg.SearchTopK)

	svcHealth := startHealthCheckers(ctx, log, st, idx, embProvider)
	router := api.NewRouter(chatSvc, memorySvc, svcHealth.IsHealthy)

	// Block startup until dependencies report healthy; fail fast otherwise.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs the store, index, and embedder, failing fast
// when any of them cannot be opened. The embedder is resolved before the
// index because the index embeds through it.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, searchindex.Index, embeddings.Provider, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, nil, nil, err
	}

	embProvider, err := factory.NewEmbeddingProvider(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Embedding provider unavailable")
		_ = st.Close()
		return nil, nil, nil, err
	}

	idx, err := factory.NewSearchIndex(ctx, cfg, embProvider, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Search index adapter unavailable")
		_ = st.Close()
		return nil, nil, nil, err
	}
	return st, idx, embProvider, nil
}

// startHealthCheckers starts per-component checkers plus the service-level
// aggregator.
func startHealthCheckers(ctx context.Context, log zerolog.Logger, st store.Store, idx searchindex.Index, embProvider embeddings.Provider) *health.ServiceHealthChecker {
	storeChecker := health.NewPingChecker("store", st, log, healthProbeTimeout)
	go storeChecker.Start(ctx, healthInterval)

	idxChecker := health.NewPingChecker("search-index", idx, log, healthProbeTimeout)
	go idxChecker.Start(ctx, healthInterval)

	embChecker := embeddings.NewHealthChecker(embProvider, log, healthProbeTimeout)
	go embChecker.Start(ctx, healthInterval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker, idxChecker, embChecker)
	go svcHealth.Start(ctx, healthInterval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// waitUntilHealthy blocks until the aggregated health is green or the
// bootstrap window expires. Checkers start unhealthy and need one probe
// cycle to go green.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	deadline := time.Now().Add(time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", cfg.BootstrapTimeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
