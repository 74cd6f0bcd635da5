// Package config loads settings from defaults, an optional YAML file and
// environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1 << 20

type Config struct {
	Port     string `koanf:"port"`
	APIKey   string `koanf:"api_key"`
	LogLevel string `koanf:"log_level"`

	// Worker pool
	WorkerCount       int `koanf:"worker_count"`
	MaxQueueSize      int `koanf:"max_queue_size"`
	MaxConcurrentDocs int `koanf:"max_concurrent_docs"`

	// Upload limits
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `koanf:"job_ttl"`

	// PDF
	PDFFallbackPdftotext bool `koanf:"pdf_fallback_pdftotext"`

	// Batch CLI
	InputDir   string `koanf:"input_dir"`
	OutputPath string `koanf:"output_path"`

	// Selection
	TopK        int `koanf:"top_k"`
	PerDocLimit int `koanf:"per_doc_limit"`

	Snippet   SnippetConfig   `koanf:"snippet"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Cache     CacheConfig     `koanf:"cache"`
	Redis     RedisConfig     `koanf:"redis"`
	Pathstore PathstoreConfig `koanf:"pathstore"`
}

type SnippetConfig struct {
	Policy    string `koanf:"policy"`
	MaxWords  int    `koanf:"max_words"`
	Highlight bool   `koanf:"highlight"`
}

type EmbeddingConfig struct {
	Provider   string        `koanf:"provider"`
	Model      string        `koanf:"model"`
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	Dimension  int           `koanf:"dimension"` // 0 means the provider's own
	ModelDir   string        `koanf:"model_dir"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

type CacheConfig struct {
	Backend   string        `koanf:"backend"`
	Dir       string        `koanf:"dir"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type PathstoreConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		WorkerCount:          2,
		MaxQueueSize:         50,
		MaxConcurrentDocs:    4,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               time.Hour,
		PDFFallbackPdftotext: true,
		InputDir:             "input",
		OutputPath:           "output/challenge1b_output.json",
		TopK:                 5,
		PerDocLimit:          2,
		Snippet: SnippetConfig{
			Policy:   "paragraph",
			MaxWords: 250,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hash",
			Model:      "BAAI/bge-base-en-v1.5",
			BaseURL:    "http://localhost:8080",
			ModelDir:   "models",
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Cache: CacheConfig{
			Backend:   "file",
			Dir:       ".cache",
			KeyPrefix: "docsect:emb:",
		},
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Pathstore: PathstoreConfig{URL: "http://localhost:8080"},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	clamp(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg with any set environment variables.
func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCSECT_API_KEY", cfg.APIKey)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentDocs = envInt("MAX_CONCURRENT_DOCS", cfg.MaxConcurrentDocs)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.InputDir = envOr("INPUT_DIR", cfg.InputDir)
	cfg.OutputPath = envOr("OUTPUT_PATH", cfg.OutputPath)
	cfg.TopK = envInt("TOP_K", cfg.TopK)
	cfg.PerDocLimit = envInt("PER_DOC_LIMIT", cfg.PerDocLimit)

	cfg.Snippet.Policy = envOr("SNIPPET_POLICY", cfg.Snippet.Policy)
	cfg.Snippet.MaxWords = envInt("SNIPPET_MAX_WORDS", cfg.Snippet.MaxWords)
	cfg.Snippet.Highlight = envBool("SNIPPET_HIGHLIGHT", cfg.Snippet.Highlight)

	cfg.Embedding.Provider = envOr("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = envOr("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BaseURL = envOr("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = envOr("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.Dimension = envInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.ModelDir = envOr("EMBEDDING_MODEL_DIR", cfg.Embedding.ModelDir)
	cfg.Embedding.Timeout = envDuration("EMBEDDING_TIMEOUT", cfg.Embedding.Timeout)
	cfg.Embedding.MaxRetries = envInt("EMBEDDING_MAX_RETRIES", cfg.Embedding.MaxRetries)

	cfg.Cache.Backend = envOr("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Dir = envOr("CACHE_DIR", cfg.Cache.Dir)
	cfg.Cache.KeyPrefix = envOr("CACHE_KEY_PREFIX", cfg.Cache.KeyPrefix)
	cfg.Cache.TTL = envDuration("CACHE_TTL", cfg.Cache.TTL)

	cfg.Redis.Addr = envOr("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envOr("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)

	cfg.Pathstore.URL = envOr("PATHSTORE_URL", cfg.Pathstore.URL)
	cfg.Pathstore.APIKey = envOr("PATHSTORE_API_KEY", cfg.Pathstore.APIKey)
}

// clamp restores defaults for non-positive limits.
func clamp(cfg *Config) {
	def := Default()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.MaxConcurrentDocs <= 0 {
		cfg.MaxConcurrentDocs = def.MaxConcurrentDocs
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.PerDocLimit <= 0 {
		cfg.PerDocLimit = def.PerDocLimit
	}
	if cfg.Snippet.MaxWords <= 0 {
		cfg.Snippet.MaxWords = def.Snippet.MaxWords
	}
	if cfg.Embedding.Timeout <= 0 {
		cfg.Embedding.Timeout = def.Embedding.Timeout
	}
	if cfg.Embedding.MaxRetries < 0 {
		cfg.Embedding.MaxRetries = 0
	}
	if cfg.Embedding.Dimension < 0 {
		cfg.Embedding.Dimension = 0
	}
	if cfg.Cache.TTL < 0 {
		cfg.Cache.TTL = 0
	}
}

// Validate checks enum values and backend requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Embedding.Provider {
	case "hash", "fastembed", "tei", "openai":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER %q is not one of hash, fastembed, tei, openai", c.Embedding.Provider))
	}
	if (c.Embedding.Provider == "tei" || c.Embedding.Provider == "openai") && c.Embedding.BaseURL == "" {
		errs = append(errs, errors.New("EMBEDDING_BASE_URL is required for remote providers"))
	}
	switch c.Cache.Backend {
	case "file", "memory", "redis", "pathstore", "none":
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND %q is not one of file, memory, redis, pathstore, none", c.Cache.Backend))
	}
	if c.Cache.Backend == "file" && c.Cache.Dir == "" {
		errs = append(errs, errors.New("CACHE_DIR is required for the file cache"))
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis cache"))
	}
	if c.Cache.Backend == "pathstore" && c.Pathstore.URL == "" {
		errs = append(errs, errors.New("PATHSTORE_URL is required for the pathstore cache"))
	}
	switch strings.ToLower(c.Snippet.Policy) {
	case "paragraph", "sentence":
	default:
		errs = append(errs, fmt.Errorf("SNIPPET_POLICY %q is not one of paragraph, sentence", c.Snippet.Policy))
	}
	return errors.Join(errs...)
}

// ValidateServer additionally checks what the HTTP server needs.
func (c Config) ValidateServer() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("DOCSECT_API_KEY is required"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
