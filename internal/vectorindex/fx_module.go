package vectorindex

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the index manager into Fx.
var FXModule = fx.Module(
	"vectorindex",

	fx.Provide(
		NewConfig,
		NewManager,
	),

	fx.Invoke(RegisterIndexLifecycle),
)

// RegisterIndexLifecycle closes the underlying client on shutdown.
func RegisterIndexLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Close()
		},
	})
}
