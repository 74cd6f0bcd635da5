package embedding

import (
	"fmt"
	"time"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string // hash, fastembed, tei, openai
	Model      string
	BaseURL    string
	APIKey     string
	Dimension  int
	ModelDir   string
	Timeout    time.Duration
	MaxRetries int
}

// NewProvider builds the configured Embedder, wrapped with metrics and the
// given latency stats (which may be nil).
func NewProvider(cfg Config, stats *LatencyStats) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "hash", "":
		e = NewHashEmbedder(cfg.Dimension)
	case "fastembed":
		e, err = newFastEmbed(cfg)
	case "tei":
		e, err = NewTEIClient(cfg.httpConfig())
	case "openai":
		e, err = NewOpenAIClient(cfg.httpConfig())
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	name := cfg.Provider
	if name == "" {
		name = "hash"
	}
	return Instrument(e, name, stats), nil
}

// newFastEmbed avoids returning a typed nil pointer inside the interface.
func newFastEmbed(cfg Config) (Embedder, error) {
	p, err := NewFastEmbedProvider(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.ModelDir})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c Config) httpConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		APIKey:     c.APIKey,
		Dimension:  c.Dimension,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
	}
}
