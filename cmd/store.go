package main

import (
	"context"

	"github.com/careerlens/careers-cli/internal/embedding"
	"github.com/careerlens/careers-cli/internal/store"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store, cfg.Ranker.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initEmbedder returns the embedding client checked against the configured
// dimensionality.
func initEmbedder() *embedding.ProfileEmbedder {
	return embedding.NewProfileEmbedder(embedding.NewOllamaClient(cfg.Embedding), cfg.Ranker.Dimensions)
}
