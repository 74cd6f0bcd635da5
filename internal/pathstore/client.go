// Package pathstore is a small client for the pathstore key-value HTTP API.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	Source    string `json:"source,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339
}

// Node is the response from GET /kv/{key}. Value is left raw for the caller
// to decode.
type Node struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

func (c *Client) nodeURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + "/kv/" + strings.Join(parts, "/")
}

// call sends one request for key and returns the response when its status
// is in accept. Any other status becomes an error that quotes the body.
func (c *Client) call(ctx context.Context, method, key string, body any, accept ...int) (*http.Response, error) {
	op := strings.ToLower(method) + " " + key
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.nodeURL(key), rd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !slices.Contains(accept, resp.StatusCode) {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp, nil
}

// PutNode stores or replaces the node at key.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	resp, err := c.call(ctx, http.MethodPut, key, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// GetNode returns the node at key, or nil if it does not exist.
func (c *Client) GetNode(ctx context.Context, key string) (*Node, error) {
	resp, err := c.call(ctx, http.MethodGet, key, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var node Node
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&node); err != nil {
		return nil, fmt.Errorf("get %s: decode: %w", key, err)
	}
	return &node, nil
}

// DeleteNode removes the node at key. Deleting a missing key is not an error.
func (c *Client) DeleteNode(ctx context.Context, key string) error {
	resp, err := c.call(ctx, http.MethodDelete, key, nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
