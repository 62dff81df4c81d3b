package autoscaler

import (
	"context"

	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/fleet"
	"github.com/cisearch/ingest/internal/logger"
	"github.com/cisearch/ingest/internal/metrics"
	"github.com/cisearch/ingest/internal/queue"
)

// FXModule wires the control loop into Fx. The FleetDriver is provided
// by the deployment-specific main.
var FXModule = fx.Module(
	"autoscaler",

	fx.Provide(
		NewConfig,
		fleet.NewConfig,
		fleet.NewRegistry,
		func(cfg Config, q queue.Client, driver FleetDriver, registry *fleet.Registry, m *metrics.Metrics, log *logger.Logger) *Controller {
			return NewController(cfg, q, driver, registry, m, log)
		},
	),

	fx.Invoke(RegisterControllerLifecycle),
)

// RegisterControllerLifecycle runs the loop until shutdown.
func RegisterControllerLifecycle(lc fx.Lifecycle, c *Controller) {
	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go c.Run(loopCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
