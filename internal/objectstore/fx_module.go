package objectstore

import (
	"go.uber.org/fx"
)

// FXModule wires the object store client into Fx, providing both the
// concrete *MinioClient and the Client interface.
var FXModule = fx.Module("objectstore",
	fx.Provide(
		NewConfig,
		NewClient,
		func(c *MinioClient) Client { return c },
	),
)
