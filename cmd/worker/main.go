package main

import (
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/catalog"
	"github.com/cisearch/ingest/internal/convert"
	"github.com/cisearch/ingest/internal/embcache"
	"github.com/cisearch/ingest/internal/embedding"
	"github.com/cisearch/ingest/internal/license"
	"github.com/cisearch/ingest/internal/logger"
	"github.com/cisearch/ingest/internal/metrics"
	"github.com/cisearch/ingest/internal/objectstore"
	"github.com/cisearch/ingest/internal/queue"
	"github.com/cisearch/ingest/internal/vectorindex"
	"github.com/cisearch/ingest/internal/worker"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// The stop timeout must outlast the drain window, or fx cancels the
	// shutdown hook while in-flight items are still settling.
	app := fx.New(
		fx.StopTimeout(worker.NewConfig().DrainTimeout+30*time.Second),
		logger.FXModule,
		metrics.FXModule,
		license.FXModule,
		objectstore.FXModule,
		queue.FXModule,
		convert.FXModule,
		embedding.FXModule,
		embcache.FXModule,
		vectorindex.FXModule,
		catalog.FXModule,
		worker.FXModule,
	)

	app.Run()
}
