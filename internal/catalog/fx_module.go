package catalog

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the catalog into Fx.
var FXModule = fx.Module(
	"catalog",

	fx.Provide(
		NewConfig,
		NewCatalog,
		func(c *Catalog) Store { return c },
	),

	fx.Invoke(RegisterCatalogLifecycle),
)

// RegisterCatalogLifecycle closes the pool on shutdown.
func RegisterCatalogLifecycle(lc fx.Lifecycle, c *Catalog) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
}
