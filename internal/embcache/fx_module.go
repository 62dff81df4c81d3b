package embcache

import (
	"context"

	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/embedding"
	"github.com/cisearch/ingest/internal/logger"
)

// FXModule wires the two-tier cache into Fx.
var FXModule = fx.Module(
	"embcache",

	fx.Provide(
		NewConfig,
		func(cfg Config) (SharedStore, error) { return NewRedisStore(cfg) },
		func(cfg Config, shared SharedStore, client *embedding.Client, log *logger.Logger) (*Cache, error) {
			return NewCache(cfg, shared, client, log)
		},
	),

	fx.Invoke(RegisterCacheLifecycle),
)

// RegisterCacheLifecycle closes both tiers on shutdown.
func RegisterCacheLifecycle(lc fx.Lifecycle, cache *Cache) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})
}
