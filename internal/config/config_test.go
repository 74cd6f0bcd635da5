package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 2, cfg.PerDocLimit)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "output/challenge1b_output.json", cfg.OutputPath)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateServer(), "api key is required to serve")
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docsect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeYAML(t, `
top_k: 7
job_ttl: 30m
snippet:
  policy: sentence
  highlight: true
embedding:
  provider: tei
  base_url: http://tei:80
cache:
  backend: redis
redis:
  addr: redis:6379
`)
	t.Setenv("TOP_K", "3")
	t.Setenv("REDIS_DB", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TopK, "env wins over file")
	assert.Equal(t, 30*time.Minute, cfg.JobTTL)
	assert.Equal(t, "sentence", cfg.Snippet.Policy)
	assert.True(t, cfg.Snippet.Highlight)
	assert.Equal(t, 250, cfg.Snippet.MaxWords, "unset keys keep defaults")
	assert.Equal(t, "tei", cfg.Embedding.Provider)
	assert.Equal(t, "http://tei:80", cfg.Embedding.BaseURL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "top_k: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_ClampsNonPositive(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("TOP_K", "-1")
	t.Setenv("JOB_TTL", "not-a-duration")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, time.Hour, cfg.JobTTL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "word2vec"
	cfg.Cache.Backend = "s3"
	cfg.Snippet.Policy = "page"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBEDDING_PROVIDER")
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
	assert.Contains(t, err.Error(), "SNIPPET_POLICY")

	cfg = Default()
	cfg.APIKey = "k"
	assert.NoError(t, cfg.ValidateServer())
}
