// Package embcache caches embedding vectors in two tiers: a small,
// short-TTL in-process cache in front of a larger, longer-TTL shared
// Redis cache.
//
// Lookup order is in-process, then shared, then compute through the
// embedding client, populating both tiers on the way back. Concurrent
// misses for the same key are collapsed through a single-flight group
// so the inference endpoint sees one call per key per process. Eviction
// is TTL-based only; the administrative Reset rotates the key salt so
// both tiers go cold without deleting shared entries other processes
// may still serve.
package embcache
