// Package logger provides structured logging for the ingestion pipeline.
//
// It wraps Uber's Zap logger with the field conventions shared by all
// pipeline components: every entry carries the service name and pid, and
// the wrapper methods accept an optional error plus free-form field maps.
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "ingest-worker"})
//	log.Info("work item indexed", nil, map[string]interface{}{
//		"work_item_id": item.ID,
//		"processor":    result.Processor,
//	})
//
// Consumers that only need a subset of the methods should declare their
// own small Logger interface, the way the queue and worker packages do.
package logger
