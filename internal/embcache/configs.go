package embcache

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultTTL        = 15 * time.Minute
	DefaultSharedTTL  = 24 * time.Hour
	DefaultMaxEntries = 10_000
	DefaultKeyPrefix  = "emb"
)

// Config controls both cache tiers.
type Config struct {
	// TTL bounds the life of an in-process entry.
	TTL time.Duration

	// SharedTTL bounds the life of a shared-tier entry. It should be
	// longer than TTL; the shared tier is the warm layer the whole
	// fleet draws from.
	SharedTTL time.Duration

	// MaxEntries caps the in-process tier.
	MaxEntries int64

	// KeyPrefix namespaces shared-tier keys.
	KeyPrefix string

	// RedisAddr, RedisPassword and RedisDB configure the shared tier
	// connection.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	cfg := Config{
		TTL:           DefaultTTL,
		SharedTTL:     DefaultSharedTTL,
		MaxEntries:    DefaultMaxEntries,
		KeyPrefix:     DefaultKeyPrefix,
		RedisAddr:     os.Getenv("EMBEDDING_CACHE_REDIS_ADDR"),
		RedisPassword: os.Getenv("EMBEDDING_CACHE_REDIS_PASSWORD"),
	}
	if v := os.Getenv("EMBEDDING_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("EMBEDDING_CACHE_SHARED_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SharedTTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("EMBEDDING_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	if v := os.Getenv("EMBEDDING_CACHE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	return cfg
}
