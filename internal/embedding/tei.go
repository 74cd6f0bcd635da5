package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPConfig configures the remote embedding clients.
type HTTPConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

func (c HTTPConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// httpBase holds what the TEI and OpenAI clients share.
type httpBase struct {
	cfg        HTTPConfig
	httpClient *http.Client
	backoff    func(int) time.Duration
	dim        atomic.Int64
}

func newHTTPBase(cfg HTTPConfig) (*httpBase, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	b := &httpBase{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    Backoff,
	}
	b.dim.Store(int64(cfg.Dimension))
	return b, nil
}

// post sends body as JSON and returns the response body of a 200 reply.
// 429 and 5xx replies become a RetryableError.
func (b *httpBase) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, clip(string(respBody), 200))
	}
	return respBody, nil
}

// accept normalises raw vectors and checks they agree on one dimension.
func (b *httpBase) accept(raw [][]float32, want int) ([]Vector, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbeddingFailed, len(raw), want)
	}
	dim := int(b.dim.Load())
	for _, r := range raw {
		if dim == 0 {
			dim = len(r)
		}
		if len(r) != dim {
			return nil, fmt.Errorf("%w: vector dimension %d, expected %d", ErrEmbeddingFailed, len(r), dim)
		}
	}
	b.dim.Store(int64(dim))
	return toVectors(raw), nil
}

func (b *httpBase) Dimension() int { return int(b.dim.Load()) }

func (b *httpBase) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

// TEIClient calls a HuggingFace text-embeddings-inference server.
type TEIClient struct {
	*httpBase
}

func NewTEIClient(cfg HTTPConfig) (*TEIClient, error) {
	b, err := newHTTPBase(cfg)
	if err != nil {
		return nil, err
	}
	return &TEIClient{httpBase: b}, nil
}

type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

func (c *TEIClient) Embed(ctx context.Context, text string) (Vector, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *TEIClient) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return withRetry(ctx, c.cfg.MaxRetries, c.backoff, func() ([]Vector, error) {
		body, err := c.post(ctx, c.cfg.BaseURL+"/embed", teiRequest{Inputs: texts, Truncate: true})
		if err != nil {
			return nil, err
		}
		var raw [][]float32
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return c.accept(raw, len(texts))
	})
}
