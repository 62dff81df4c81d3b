package embcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisearch/ingest/internal/embedding"
)

type mapStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	sets    int
}

func newMapStore() *mapStore {
	return &mapStore{entries: map[string][]byte{}}
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	data, ok := s.entries[key]
	return data, ok, nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.entries[key] = value
	return nil
}

func (s *mapStore) Close() error { return nil }

type countingEmbedder struct {
	mu    sync.Mutex
	vec   embedding.Vector
	errs  []error
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	e.calls++
	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	return e.vec, nil
}

type discardLogger struct{}

func (discardLogger) Warn(msg string, err error, fields ...map[string]interface{}) {}

func testCacheConfig() Config {
	return Config{
		TTL:        time.Minute,
		SharedTTL:  time.Hour,
		MaxEntries: 128,
		KeyPrefix:  "emb",
	}
}

func newTestCache(t *testing.T, store SharedStore, emb Embedder) *Cache {
	t.Helper()
	c, err := NewCache(testCacheConfig(), store, emb, discardLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetComputesOnMissAndPopulatesBothTiers(t *testing.T) {
	store := newMapStore()
	emb := &countingEmbedder{vec: embedding.Vector{1, 0, 0}}
	c := newTestCache(t, store, emb)

	content := embedding.Content{Text: "page one"}
	v, err := c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0, 0}, v)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, store.sets)

	// Wait for the local tier's write buffer before the second lookup.
	c.local.Wait()

	v, err = c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0, 0}, v)
	assert.Equal(t, 1, emb.calls)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.LocalHits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestGetServesFromSharedTier(t *testing.T) {
	store := newMapStore()
	emb := &countingEmbedder{vec: embedding.Vector{9, 9, 9}}
	c := newTestCache(t, store, emb)

	content := embedding.Content{Text: "warm"}
	store.entries[c.keyFor(content)] = encodeVector(embedding.Vector{0, 1, 0})

	v, err := c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{0, 1, 0}, v)
	assert.Zero(t, emb.calls)
	assert.Equal(t, uint64(1), c.Stats().SharedHits)
}

func TestGetDegradesWhenSharedTierFails(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("connection refused")
	emb := &countingEmbedder{vec: embedding.Vector{1, 0}}
	c := newTestCache(t, store, emb)

	v, err := c.Get(context.Background(), embedding.Content{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0}, v)
	assert.Equal(t, 1, emb.calls)
}

func TestGetDiscardsCorruptSharedEntry(t *testing.T) {
	store := newMapStore()
	emb := &countingEmbedder{vec: embedding.Vector{1, 0}}
	c := newTestCache(t, store, emb)

	content := embedding.Content{Text: "x"}
	store.entries[c.keyFor(content)] = []byte{0x01, 0x02, 0x03} // not a float32 frame

	v, err := c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0}, v)
	assert.Equal(t, 1, emb.calls)
}

func TestComputeErrorsAreNeverCached(t *testing.T) {
	store := newMapStore()
	emb := &countingEmbedder{
		vec:  embedding.Vector{1, 0},
		errs: []error{errors.New("throttled")},
	}
	c := newTestCache(t, store, emb)
	content := embedding.Content{Text: "x"}

	_, err := c.Get(context.Background(), content)
	require.Error(t, err)
	assert.Empty(t, store.entries)

	v, err := c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 0}, v)
	assert.Equal(t, 2, emb.calls)
}

func TestResetRotatesKeys(t *testing.T) {
	store := newMapStore()
	emb := &countingEmbedder{vec: embedding.Vector{1, 0}}
	c := newTestCache(t, store, emb)
	content := embedding.Content{Text: "x"}

	before := c.keyFor(content)
	_, err := c.Get(context.Background(), content)
	require.NoError(t, err)

	c.Reset()

	after := c.keyFor(content)
	assert.NotEqual(t, before, after)

	_, err = c.Get(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
}

func TestKeyForDiscriminatesModality(t *testing.T) {
	c := newTestCache(t, newMapStore(), &countingEmbedder{vec: embedding.Vector{1}})
	text := embedding.Content{Text: "abc"}
	image := embedding.Content{Text: "abc", Image: []byte{}}
	withImage := embedding.Content{Text: "abc", Image: []byte{0xFF}}

	assert.Equal(t, c.keyFor(text), c.keyFor(image)) // empty image is text-only
	assert.NotEqual(t, c.keyFor(text), c.keyFor(withImage))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := embedding.Vector{0.25, -1.5, 3.75, 0}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector(nil)
	assert.Error(t, err)
	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
