package worker

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config controls the worker pool and shutdown behavior.
type Config struct {
	// WorkerID identifies this worker in the fleet registry. Defaults
	// to the hostname, falling back to a random id.
	WorkerID string

	// Concurrency bounds how many messages are in flight at once.
	Concurrency int

	// ExtendInterval is how often the visibility keepalive fires while
	// a message is converting.
	ExtendInterval time.Duration

	// DrainTimeout bounds how long shutdown waits for in-flight items
	// before returning them to the queue. Must fit inside the
	// preemption grace deadline.
	DrainTimeout time.Duration
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	cfg := Config{
		WorkerID:       os.Getenv("WORKER_ID"),
		Concurrency:    4,
		ExtendInterval: 30 * time.Second,
		DrainTimeout:   100 * time.Second,
	}
	if cfg.WorkerID == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.WorkerID = host
		} else {
			cfg.WorkerID = "worker-" + uuid.NewString()[:8]
		}
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("WORKER_EXTEND_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExtendInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WORKER_DRAIN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}
