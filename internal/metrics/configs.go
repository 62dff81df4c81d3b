package metrics

import "os"

// Config controls the metrics HTTP server and registry labeling.
type Config struct {
	// Address is the listen address for the /metrics endpoint, e.g. ":9090".
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// ServiceName is applied to every metric as a constant "service" label.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`

	// EnableDefaultCollectors registers the Go runtime, process, and build
	// info collectors alongside the application metrics.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_DEFAULT_COLLECTORS"`
}

// NewConfig reads the metrics configuration from environment variables.
func NewConfig() Config {
	addr := os.Getenv("METRICS_ADDRESS")
	if addr == "" {
		addr = ":9090"
	}
	svc := os.Getenv("SERVICE_NAME")
	if svc == "" {
		svc = "ingest-worker"
	}
	return Config{
		Address:                 addr,
		ServiceName:             svc,
		EnableDefaultCollectors: os.Getenv("METRICS_DEFAULT_COLLECTORS") != "false",
	}
}
