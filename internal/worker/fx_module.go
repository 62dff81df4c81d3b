package worker

import (
	"context"

	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/catalog"
	"github.com/cisearch/ingest/internal/convert"
	"github.com/cisearch/ingest/internal/embcache"
	"github.com/cisearch/ingest/internal/fleet"
	"github.com/cisearch/ingest/internal/logger"
	"github.com/cisearch/ingest/internal/metrics"
	"github.com/cisearch/ingest/internal/objectstore"
	"github.com/cisearch/ingest/internal/queue"
	"github.com/cisearch/ingest/internal/vectorindex"
)

// FXModule wires the processor and runner into Fx.
var FXModule = fx.Module(
	"worker",

	fx.Provide(
		NewConfig,
		fleet.NewConfig,
		fleet.NewRegistry,
		func(cfg Config, q queue.Client, store objectstore.Client, conv *convert.Converter, cache *embcache.Cache,
			index *vectorindex.Manager, failures catalog.Store, m *metrics.Metrics, log *logger.Logger) *Processor {
			return NewProcessor(cfg, q.MaxReceiveCount(), store, conv, cache, index, failures, m, log)
		},
		func(cfg Config, q queue.Client, p *Processor, registry *fleet.Registry, log *logger.Logger) (*Runner, error) {
			return NewRunner(cfg, q, p, registry, log)
		},
	),

	fx.Invoke(RegisterWorkerLifecycle),
)

// RegisterWorkerLifecycle starts the consume loop and runs the drain
// protocol on shutdown.
func RegisterWorkerLifecycle(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go r.Run(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return r.Shutdown(ctx)
		},
	})
}
