package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Title embedding lookups by result (hit, miss).",
	}, []string{"result"})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "cache",
		Name:      "store_errors_total",
		Help:      "Cache store failures by operation. They never fail a run.",
	}, []string{"op"})
)

// Item asks for the embedding of one title of one document.
type Item struct {
	DocHash string
	Title   string
}

// Cache resolves title embeddings through a Store, embedding misses.
// It is not safe for concurrent use; one run owns one Cache.
type Cache struct {
	store    Store
	embedder embedding.Embedder
	log      *slog.Logger
}

func New(store Store, embedder embedding.Embedder, log *slog.Logger) *Cache {
	if store == nil {
		store = NopStore{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{store: store, embedder: embedder, log: log}
}

// Resolve returns one vector per item, in item order. A cached vector counts
// as a hit only when its length is dim. Misses are embedded in one batch per
// document and written back. Store failures are logged and otherwise
// ignored; embedding failures are returned.
func (c *Cache) Resolve(ctx context.Context, items []Item, dim int) ([]embedding.Vector, error) {
	out := make([]embedding.Vector, len(items))

	// Group by document, keeping first-seen order.
	var docs []string
	byDoc := make(map[string][]int)
	for i, it := range items {
		if _, ok := byDoc[it.DocHash]; !ok {
			docs = append(docs, it.DocHash)
		}
		byDoc[it.DocHash] = append(byDoc[it.DocHash], i)
	}

	for _, hash := range docs {
		entry := c.load(ctx, hash)

		var missing []string
		queued := make(map[string]bool)
		for _, i := range byDoc[hash] {
			title := items[i].Title
			if v, ok := entry[title]; ok && len(v) == dim {
				lookupsTotal.WithLabelValues("hit").Inc()
				continue
			}
			lookupsTotal.WithLabelValues("miss").Inc()
			if !queued[title] {
				queued[title] = true
				missing = append(missing, title)
			}
		}

		if len(missing) > 0 {
			vecs, err := c.embedder.EmbedBatch(ctx, missing)
			if err != nil {
				return nil, fmt.Errorf("embed titles: %w", err)
			}
			if len(vecs) != len(missing) {
				return nil, fmt.Errorf("embed titles: got %d vectors for %d titles", len(vecs), len(missing))
			}
			for j, title := range missing {
				entry[title] = vecs[j]
			}
			if err := c.store.Put(ctx, hash, entry); err != nil {
				storeErrorsTotal.WithLabelValues("put").Inc()
				c.log.Warn("cache write failed", "hash", hash, "error", err)
			}
		}

		for _, i := range byDoc[hash] {
			out[i] = entry[items[i].Title]
		}
	}
	return out, nil
}

// load reads an entry. Read errors and corrupt data yield an empty entry.
func (c *Cache) load(ctx context.Context, hash string) Entry {
	entry, err := c.store.Get(ctx, hash)
	if err != nil {
		storeErrorsTotal.WithLabelValues("get").Inc()
		c.log.Warn("cache read failed, recomputing", "hash", hash, "error", err)
		return Entry{}
	}
	if entry == nil {
		return Entry{}
	}
	return entry
}
