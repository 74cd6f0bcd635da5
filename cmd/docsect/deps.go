package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsect/internal/cache"
	"github.com/dgallion1/docsect/internal/config"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/pathstore"
	"github.com/dgallion1/docsect/internal/pipeline"
)

func newEmbedder(c config.EmbeddingConfig, stats *embedding.LatencyStats) (embedding.Embedder, error) {
	return embedding.NewProvider(embedding.Config{
		Provider:   c.Provider,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Dimension:  c.Dimension,
		ModelDir:   c.ModelDir,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
	}, stats)
}

// newStore opens the configured cache backend. A backend that cannot be
// reached or created degrades to no caching; only an unknown backend name
// is an error.
func newStore(ctx context.Context, c config.Config, logger *slog.Logger) (cache.Store, error) {
	var (
		store cache.Store
		err   error
	)
	switch c.Cache.Backend {
	case "file":
		store, err = cache.NewFileStore(c.Cache.Dir)
	case "memory":
		store = cache.NewMemoryStore()
	case "redis":
		store, err = cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Cache.KeyPrefix,
			TTL:      c.Cache.TTL,
		})
	case "pathstore":
		client := pathstore.NewClient(c.Pathstore.URL, c.Pathstore.APIKey)
		store = cache.NewPathstoreStore(client, c.Cache.KeyPrefix, c.Cache.TTL)
	case "none", "":
		store = cache.NopStore{}
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if err != nil {
		logger.Warn("cache backend unavailable, continuing without cache", "backend", c.Cache.Backend, "error", err)
		return cache.NopStore{}, nil
	}
	return store, nil
}

// components holds everything an analysis needs. Close releases them.
type components struct {
	embedder embedding.Embedder
	store    cache.Store
	analyzer *pipeline.Analyzer
	stats    *embedding.LatencyStats
}

func newComponents(ctx context.Context) (*components, error) {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	stats := embedding.NewLatencyStats(time.Hour)
	e, err := newEmbedder(cfg.Embedding, stats)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	log.Debug("components ready",
		"embedding_provider", cfg.Embedding.Provider,
		"dimension", e.Dimension(),
		"cache_backend", cfg.Cache.Backend,
	)
	return &components{
		embedder: e,
		store:    store,
		analyzer: pipeline.NewAnalyzer(e, store, opts, log),
		stats:    stats,
	}, nil
}

func (c *components) Close() {
	if err := c.store.Close(); err != nil {
		log.Warn("closing cache", "error", err)
	}
	if err := c.embedder.Close(); err != nil {
		log.Warn("closing embedder", "error", err)
	}
}
