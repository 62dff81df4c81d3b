package vectorindex

import (
	"os"
	"strconv"
	"time"
)

// Config holds connection and behavior settings for the index manager.
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int

	// Optional authentication token for secured deployments.
	APIKey string

	// Alias is the stable name readers and writers resolve. It always
	// points at the active generation.
	Alias string

	// GenerationPrefix names generation collections:
	// <prefix>_<generation id>.
	GenerationPrefix string

	// EfSearch is the default query-time ANN candidate budget.
	EfSearch uint64

	// EfConstruction and M are the build-time HNSW parameters applied
	// to new generations unless the mapping overrides them.
	EfConstruction uint64
	M              uint64

	// RetentionWindow is the minimum time a replaced generation stays
	// available after promote before retire is allowed.
	RetentionWindow time.Duration

	// ReindexBatchSize is the scroll/upsert page size during migration.
	ReindexBatchSize int

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	cfg := &Config{
		Endpoint:         envOr("QDRANT_ENDPOINT", "localhost"),
		Port:             envIntOr("QDRANT_PORT", 6334),
		APIKey:           os.Getenv("QDRANT_API_KEY"),
		Alias:            envOr("INDEX_ALIAS", "documents"),
		GenerationPrefix: envOr("INDEX_GENERATION_PREFIX", "documents"),
		EfSearch:         uint64(envIntOr("EF_SEARCH", 128)),
		EfConstruction:   uint64(envIntOr("EF_CONSTRUCTION", 256)),
		M:                uint64(envIntOr("HNSW_M", 16)),
		RetentionWindow:  time.Duration(envIntOr("GENERATION_RETENTION_SECONDS", 86400)) * time.Second,
		ReindexBatchSize: envIntOr("REINDEX_BATCH_SIZE", 200),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
