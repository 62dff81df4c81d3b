package convert

import (
	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/license"
	"github.com/cisearch/ingest/internal/logger"
)

// FXModule wires the converter and its two extraction backends into Fx.
var FXModule = fx.Module("convert",
	fx.Provide(
		NewConfig,
		NewSDKClient,
		NewOCRClient,
		func(c *SDKClient) SDKProcessor { return c },
		func(c *OCRClient) OCREngine { return c },
		func(cfg Config, lm *license.Manager, sdk SDKProcessor, ocr OCREngine, log *logger.Logger) *Converter {
			return NewConverter(cfg, lm, sdk, ocr, log)
		},
	),
)

var _ Logger = (*logger.Logger)(nil)
