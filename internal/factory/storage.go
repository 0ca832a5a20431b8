// Package factory builds the backend components selected by configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/config"
	"github.com/tohum-ai/tohum/internal/store"
	"github.com/tohum-ai/tohum/internal/store/postgres"
	"github.com/tohum-ai/tohum/internal/store/sqlite"
)

// NewStore opens the relational store named by cfg.DBDriver with its schema
// applied.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLitePath).Msg("opening sqlite store")
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case "postgres":
		log.Info().Msg("opening postgres store")
		if err := postgres.Bootstrap(ctx, cfg.PostgresDSN); err != nil {
			return nil, fmt.Errorf("bootstrap postgres: %w", err)
		}
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return postgres.NewWithDB(db), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}
