// Package cache keeps title embeddings per document, keyed by a hash of the
// document bytes, so unchanged documents are not re-encoded.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/dgallion1/docsect/internal/embedding"
)

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Entry maps a heading title to its embedding.
type Entry map[string]embedding.Vector

// Store persists entries by document hash. Get returns (nil, nil) for a
// missing key. Concurrent writers to one key race; the last write wins.
type Store interface {
	Get(ctx context.Context, hash string) (Entry, error)
	Put(ctx context.Context, hash string, e Entry) error
	Close() error
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return e, nil
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, hash string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[hash]
	if !ok {
		return nil, nil
	}
	return maps.Clone(e), nil
}

func (m *MemoryStore) Put(_ context.Context, hash string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[hash] = maps.Clone(e)
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error { return nil }

// NopStore never stores anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string) (Entry, error) { return nil, nil }
func (NopStore) Put(context.Context, string, Entry) error   { return nil }
func (NopStore) Close() error                               { return nil }
