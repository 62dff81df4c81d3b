package queue

import (
	"os"
	"strconv"
)

// Config defines the top-level configuration structure for the work
// queue client. It contains the sections needed to establish a broker
// connection, set up the channel topology, and configure dead-letter
// behavior for exhausted messages.
type Config struct {
	// Connection contains the settings needed to reach the broker
	Connection Connection

	// Channel contains exchange, queue, and routing configuration
	Channel Channel

	// DeadLetter configures the dead-letter exchange and queue that
	// receive messages exceeding the retry limit
	DeadLetter DeadLetter

	// MaxReceiveCount is the number of deliveries after which a
	// retryable failure is routed to the dead-letter queue instead of
	// being requeued. Observed convention: 3.
	MaxReceiveCount int
}

// Connection contains the parameters for the broker connection.
type Connection struct {
	// Host is the broker hostname or IP address
	Host string

	// Port is the broker port (typically 5672, 5671 for TLS)
	Port uint

	// User is the broker username
	User string

	// Password is the broker password
	Password string

	// IsSSLEnabled switches the connection to amqps
	IsSSLEnabled bool
}

// Channel contains exchange, queue, and binding configuration.
type Channel struct {
	// ExchangeName is the exchange ingestion events are published to
	ExchangeName string

	// ExchangeType defines routing behavior ("direct", "topic", ...)
	ExchangeType string

	// RoutingKey routes events from the exchange to the work queue
	RoutingKey string

	// QueueName is the durable work queue the workers consume from
	QueueName string

	// PrefetchCount limits unacknowledged deliveries per consumer.
	// This is the worker's in-flight concurrency bound at the broker.
	PrefetchCount int

	// DelayToReconnect is the wait in milliseconds between reconnection
	// attempts
	DelayToReconnect int
}

// DeadLetter configures the dead-letter topology. Messages that are
// rejected without requeue land here for manual inspection.
type DeadLetter struct {
	// ExchangeName is the dead-letter exchange
	ExchangeName string

	// QueueName is the queue bound to the dead-letter exchange
	QueueName string

	// RoutingKey is used when dead-lettering messages
	RoutingKey string
}

// NewConfig reads the queue configuration from environment variables.
func NewConfig() Config {
	port := uint(5672)
	if v := os.Getenv("QUEUE_PORT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			port = uint(n)
		}
	}
	prefetch := 4
	if v := os.Getenv("QUEUE_PREFETCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			prefetch = n
		}
	}
	maxReceive := 3
	if v := os.Getenv("QUEUE_MAX_RECEIVE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxReceive = n
		}
	}

	return Config{
		Connection: Connection{
			Host:         envOr("QUEUE_HOST", "localhost"),
			Port:         port,
			User:         envOr("QUEUE_USER", "guest"),
			Password:     envOr("QUEUE_PASSWORD", "guest"),
			IsSSLEnabled: os.Getenv("QUEUE_SSL") == "true",
		},
		Channel: Channel{
			ExchangeName:     envOr("QUEUE_EXCHANGE", "ingest-events"),
			ExchangeType:     envOr("QUEUE_EXCHANGE_TYPE", "direct"),
			RoutingKey:       envOr("QUEUE_ROUTING_KEY", "ingest"),
			QueueName:        envOr("QUEUE_NAME", "ingest-work"),
			PrefetchCount:    prefetch,
			DelayToReconnect: 2000,
		},
		DeadLetter: DeadLetter{
			ExchangeName: envOr("QUEUE_DLX", "ingest-dlx"),
			QueueName:    envOr("QUEUE_DLQ", "ingest-dead-letter"),
			RoutingKey:   envOr("QUEUE_DLQ_ROUTING_KEY", "dead-letter"),
		},
		MaxReceiveCount: maxReceive,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
