package embcache

import (
	"context"
	"time"

	"github.com/cisearch/ingest/internal/embedding"
)

// Embedder computes a vector on a cache miss. *embedding.Client
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, content embedding.Content) (embedding.Vector, error)
}

// SharedStore is the shared cache tier. Implementations return
// (nil, false, nil) on a miss; an error means the tier itself failed.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Logger is the subset of the logger used by this package.
type Logger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}
