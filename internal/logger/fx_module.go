package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the logger into an Fx-based application. It provides the
// logger factory and registers a shutdown hook that flushes buffered entries.
var FXModule = fx.Module("logger",
	fx.Provide(
		NewConfig,
		NewLoggerClient,
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle handles cleanup (sync) of the Zap logger on
// application shutdown so no buffered entries are lost.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Zap.Sync() // flushes any buffered logs
		},
	})
}
