package queue

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the work queue client into Fx, providing both the
// concrete *RabbitClient and the Client interface, and registering the
// graceful shutdown hook.
var FXModule = fx.Module("queue",
	fx.Provide(
		NewConfig,
		NewClient,
		func(c *RabbitClient) Client { return c },
	),
	fx.Invoke(RegisterQueueLifecycle),
)

// RegisterQueueLifecycle closes the broker connection on application
// shutdown after the consumers have drained.
func RegisterQueueLifecycle(lc fx.Lifecycle, client *RabbitClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.GracefulShutdown()
			return nil
		},
	})
}
