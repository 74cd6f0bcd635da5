package cache

import (
	"context"
	"strings"
	"time"

	"github.com/dgallion1/docsect/internal/pathstore"
)

// PathstoreStore keeps entries in a pathstore server under {prefix}/{hash}.
type PathstoreStore struct {
	client *pathstore.Client
	prefix string
	ttl    time.Duration
}

func NewPathstoreStore(client *pathstore.Client, prefix string, ttl time.Duration) *PathstoreStore {
	return &PathstoreStore{client: client, prefix: strings.Trim(prefix, "/:"), ttl: ttl}
}

func (p *PathstoreStore) key(hash string) string {
	if p.prefix == "" {
		return hash
	}
	return p.prefix + "/" + hash
}

func (p *PathstoreStore) Get(ctx context.Context, hash string) (Entry, error) {
	node, err := p.client.GetNode(ctx, p.key(hash))
	if err != nil || node == nil {
		return nil, err
	}
	return decodeEntry(node.Value)
}

func (p *PathstoreStore) Put(ctx context.Context, hash string, e Entry) error {
	req := pathstore.NodeRequest{Value: e, Source: "docsect"}
	if p.ttl > 0 {
		req.ExpiresAt = time.Now().Add(p.ttl).UTC().Format(time.RFC3339)
	}
	return p.client.PutNode(ctx, p.key(hash), req)
}

func (p *PathstoreStore) Close() error {
	p.client.Close()
	return nil
}
