package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records every batch it is asked to embed.
type countingEmbedder struct {
	*embedding.HashEmbedder
	batches [][]string
	err     error
}

func newCounting(dim int) *countingEmbedder {
	return &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(dim)}
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (Entry, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Put(context.Context, string, Entry) error { return errors.New("disk on fire") }
func (failingStore) Close() error                             { return nil }

func TestContentHashHex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHashHex(nil))
	assert.Len(t, ContentHashHex([]byte("x")), 64)
}

func TestResolve_BatchesMissesPerDocument(t *testing.T) {
	emb := newCounting(16)
	store := NewMemoryStore()
	c := New(store, emb, nil)

	items := []Item{
		{"doc-a", "Introduction"},
		{"doc-b", "Methods"},
		{"doc-a", "Results"},
		{"doc-a", "Introduction"},
	}
	vecs, err := c.Resolve(context.Background(), items, 16)
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	assert.Equal(t, [][]string{{"Introduction", "Results"}, {"Methods"}}, emb.batches)
	assert.Equal(t, vecs[0], vecs[3])
	for _, v := range vecs {
		assert.Len(t, v, 16)
	}
	assert.Equal(t, 2, store.Len())

	// Second run is served from the store.
	vecs2, err := c.Resolve(context.Background(), items, 16)
	require.NoError(t, err)
	assert.Len(t, emb.batches, 2)
	assert.Equal(t, vecs, vecs2)
}

func TestResolve_DimensionMismatchIsMiss(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "doc", Entry{"Title": {1, 0, 0}}))
	emb := newCounting(8)

	vecs, err := New(store, emb, nil).Resolve(context.Background(), []Item{{"doc", "Title"}}, 8)
	require.NoError(t, err)
	assert.Len(t, vecs[0], 8)
	assert.Equal(t, [][]string{{"Title"}}, emb.batches)

	stored, _ := store.Get(context.Background(), "doc")
	assert.Len(t, stored["Title"], 8, "stale vector replaced")
}

func TestResolve_StoreFailuresDegrade(t *testing.T) {
	emb := newCounting(8)
	vecs, err := New(failingStore{}, emb, nil).Resolve(context.Background(), []Item{{"doc", "Title"}}, 8)
	require.NoError(t, err)
	assert.Len(t, vecs[0], 8)
}

func TestResolve_EmbeddingFailureIsFatal(t *testing.T) {
	emb := newCounting(8)
	emb.err = errors.New("service down")
	_, err := New(NewMemoryStore(), emb, nil).Resolve(context.Background(), []Item{{"doc", "Title"}}, 8)
	assert.ErrorContains(t, err, "service down")
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	ctx := context.Background()

	e, err := fs.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, fs.Put(ctx, "abc", Entry{"Heading": {0.6, 0.8}}))
	e, err = fs.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, Entry{"Heading": {0.6, 0.8}}, e)

	// No temp files left behind.
	files, _ := os.ReadDir(filepath.Join(dir, "cache"))
	assert.Len(t, files, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache", "bad.json"), []byte("{not json"), 0o644))
	_, err = fs.Get(ctx, "bad")
	assert.Error(t, err)

	// A corrupt file only costs a recompute.
	vecs, err := New(fs, newCounting(4), nil).Resolve(ctx, []Item{{"bad", "T"}}, 4)
	require.NoError(t, err)
	assert.Len(t, vecs[0], 4)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("DOCSECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCSECT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rs, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: "docsect:test:"})
	require.NoError(t, err)
	defer rs.Close()

	hash := ContentHashHex([]byte(t.Name()))
	require.NoError(t, rs.Put(ctx, hash, Entry{"A": {1}}))
	e, err := rs.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, Entry{"A": {1}}, e)

	e, err = rs.Get(ctx, "missing-"+hash)
	require.NoError(t, err)
	assert.Nil(t, e)
}
