package logger

import "os"

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the log level and the identifying fields attached to
// every entry.
type Config struct {
	// Level is one of debug, info, warning, error. Defaults to info.
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`

	// ServiceName is attached to every log entry as the "service" field.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// NewConfig reads the logger configuration from environment variables.
func NewConfig() Config {
	svc := os.Getenv("SERVICE_NAME")
	if svc == "" {
		svc = "ingest-worker"
	}
	return Config{
		Level:       os.Getenv("ZAP_LOGGER_LEVEL"),
		ServiceName: svc,
	}
}
