package license

import (
	"os"
	"strconv"
	"time"
)

// Config controls the bounded-concurrency license gate.
type Config struct {
	// MaxConcurrent is the number of conversion slots the license permits.
	// Fixed at construction. Default 2, the seat count of the commercial
	// converter license.
	MaxConcurrent int

	// AcquireTimeout bounds how long WithLicense waits for a slot before
	// giving up. Default 30s.
	AcquireTimeout time.Duration
}

// NewConfig reads the license gate configuration from environment variables.
func NewConfig() Config {
	cfg := Config{
		MaxConcurrent:  2,
		AcquireTimeout: 30 * time.Second,
	}
	if v := os.Getenv("MAX_CONCURRENT_LICENSES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("LICENSE_ACQUIRE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AcquireTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}
