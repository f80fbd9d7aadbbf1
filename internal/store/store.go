// Package store persists consolidated careers, the embedding index, and the
// query cache in SQLite or Postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/index"
	"github.com/careerlens/careers-cli/internal/model"
	"github.com/careerlens/careers-cli/internal/querycache"
)

// Index is a searchable, writable embedding index.
type Index interface {
	index.Searcher
	index.Writer
}

// Store defines the persistence interface.
type Store interface {
	// Careers. ReplaceCareers swaps the whole set in one transaction.
	ReplaceCareers(ctx context.Context, careers []model.ConsolidatedCareer) error
	ListCareers(ctx context.Context) ([]model.ConsolidatedCareer, error)

	// Query cache
	querycache.Backend

	// Index returns the embedding index kept alongside the careers.
	Index() Index

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver. dims is the embedding
// dimensionality of the index.
func Open(ctx context.Context, cfg config.StoreConfig, dims int) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := NewSQLite(cfg.DatabaseURL, dims)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}, dims)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
