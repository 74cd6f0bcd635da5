package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// OpenAIClient calls an OpenAI-compatible /embeddings endpoint.
type OpenAIClient struct {
	*httpBase
}

func NewOpenAIClient(cfg HTTPConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	b, err := newHTTPBase(cfg)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{httpBase: b}, nil
}

type openAIRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) (Vector, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return withRetry(ctx, c.cfg.MaxRetries, c.backoff, func() ([]Vector, error) {
		body, err := c.post(ctx, c.cfg.BaseURL+"/embeddings", openAIRequest{Input: texts, Model: c.cfg.Model})
		if err != nil {
			return nil, err
		}
		var resp openAIResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrEmbeddingFailed, resp.Error.Message)
		}
		// The API may return items out of order; index is authoritative.
		sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		raw := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			raw[i] = d.Embedding
		}
		return c.accept(raw, len(texts))
	})
}
