package embcache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/cisearch/ingest/internal/embedding"
)

// Cache is the two-tier embedding cache. Safe for concurrent use.
type Cache struct {
	cfg      Config
	local    *ristretto.Cache[string, embedding.Vector]
	shared   SharedStore
	embedder Embedder
	group    singleflight.Group
	log      Logger

	// salt participates in every key. Bumping it on Reset makes both
	// tiers go cold for this process without touching shared entries.
	salt atomic.Uint64

	localHits  atomic.Uint64
	sharedHits atomic.Uint64
	misses     atomic.Uint64
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	LocalHits  uint64
	SharedHits uint64
	Misses     uint64
}

// NewCache builds the in-process tier and wires the shared tier and
// the compute path behind it.
func NewCache(cfg Config, shared SharedStore, embedder Embedder, log Logger) (*Cache, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, embedding.Vector]{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embcache: build local tier: %w", err)
	}
	return &Cache{
		cfg:      cfg,
		local:    local,
		shared:   shared,
		embedder: embedder,
		log:      log,
	}, nil
}

// Get returns the embedding for the content, from the in-process tier,
// the shared tier, or a fresh computation, in that order. A computed
// vector populates both tiers before it is returned. Errors from the
// compute path are never cached.
func (c *Cache) Get(ctx context.Context, content embedding.Content) (embedding.Vector, error) {
	key := c.keyFor(content)

	if v, ok := c.local.Get(key); ok {
		c.localHits.Add(1)
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fill(ctx, key, content)
	})
	if err != nil {
		return nil, err
	}

	vec := v.(embedding.Vector)
	c.local.SetWithTTL(key, vec, 1, c.cfg.TTL)
	return vec, nil
}

// fill resolves a local-tier miss: shared tier first, then compute.
func (c *Cache) fill(ctx context.Context, key string, content embedding.Content) (embedding.Vector, error) {
	data, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		// A failing shared tier degrades to compute, it does not fail
		// the lookup.
		c.log.Warn("shared cache tier read failed", err, map[string]interface{}{"key": key})
	} else if ok {
		vec, decodeErr := decodeVector(data)
		if decodeErr == nil {
			c.sharedHits.Add(1)
			return vec, nil
		}
		c.log.Warn("discarding corrupt shared cache entry", decodeErr, map[string]interface{}{"key": key})
	}

	c.misses.Add(1)
	vec, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	if err := c.shared.Set(ctx, key, encodeVector(vec), c.cfg.SharedTTL); err != nil {
		c.log.Warn("shared cache tier write failed", err, map[string]interface{}{"key": key})
	}
	return vec, nil
}

// Reset clears the in-process tier and rotates the key salt. Shared
// entries written before the reset become unreachable from this process
// but stay live for their TTL elsewhere.
func (c *Cache) Reset() {
	c.salt.Add(1)
	c.local.Clear()
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache) Stats() Stats {
	return Stats{
		LocalHits:  c.localHits.Load(),
		SharedHits: c.sharedHits.Load(),
		Misses:     c.misses.Load(),
	}
}

// Close releases the in-process tier and the shared connection.
func (c *Cache) Close() error {
	c.local.Close()
	return c.shared.Close()
}

// keyFor hashes the content with a discriminator (modality and payload
// lengths) so distinct inputs with colliding bodies stay apart, and
// folds in the reset salt.
func (c *Cache) keyFor(content embedding.Content) string {
	h := xxhash.New()
	if content.Multimodal() {
		fmt.Fprintf(h, "m:%d:%d:", len(content.Text), len(content.Image))
	} else {
		fmt.Fprintf(h, "t:%d:", len(content.Text))
	}
	h.WriteString(content.Text)
	h.Write(content.Image)
	return fmt.Sprintf("%s:%d:%016x", c.cfg.KeyPrefix, c.salt.Load(), h.Sum64())
}
