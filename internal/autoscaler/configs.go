package autoscaler

import (
	"os"
	"strconv"
	"time"
)

// Config holds the control-loop tuning.
type Config struct {
	// Interval between control-loop ticks.
	Interval time.Duration

	// ThroughputPerWorker is the expected messages a worker clears per
	// interval, the constant dividing queue depth into desired size.
	ThroughputPerWorker int

	// ScaleOutThreshold is the queue depth that must be reached before
	// the controller scales above the floor.
	ScaleOutThreshold int

	// MinIncrement is the smallest scale-out step.
	MinIncrement int

	// SustainedWindow is how long the low state must persist before a
	// scale-in is considered.
	SustainedWindow time.Duration

	// Cooldown a scale-in must wait after the last scaling action.
	// Scale-out is never held back by it.
	Cooldown time.Duration

	// MinWorkers and MaxWorkers bound the fleet.
	MinWorkers int
	MaxWorkers int
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	return Config{
		Interval:            time.Duration(envIntOr("AUTOSCALER_INTERVAL_SECONDS", 30)) * time.Second,
		ThroughputPerWorker: envIntOr("THROUGHPUT_PER_WORKER", 10),
		ScaleOutThreshold:   envIntOr("SCALE_OUT_THRESHOLD", 1),
		MinIncrement:        envIntOr("MIN_SCALE_INCREMENT", 2),
		SustainedWindow:     time.Duration(envIntOr("SCALE_IN_SUSTAINED_WINDOW_SECONDS", 300)) * time.Second,
		Cooldown:            time.Duration(envIntOr("COOLDOWN_SECONDS", 120)) * time.Second,
		MinWorkers:          envIntOr("MIN_WORKERS", 1),
		MaxWorkers:          envIntOr("MAX_WORKERS", 20),
	}
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
