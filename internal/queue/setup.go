package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitClient is the AMQP-backed work queue client. It manages the
// connection and channel and declares the full topology (exchange, work
// queue, dead-letter exchange and queue) on startup.
type RabbitClient struct {
	// cfg stores the configuration for this client
	cfg Config

	// Channel is the AMQP channel used for consuming and settling
	Channel *amqp.Channel

	// conn is the underlying AMQP connection
	conn *amqp.Connection

	// mu protects concurrent access to connection and channel
	mu sync.RWMutex

	// shutdownSignal is closed when the client is being shut down
	shutdownSignal chan struct{}

	closeShutdownOnce sync.Once
}

// NewClient creates and initializes a work queue client. It establishes
// the broker connection, sets up the channel, and declares exchanges and
// queues as specified in the configuration.
//
// Example:
//
//	client, err := queue.NewClient(queue.NewConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.GracefulShutdown()
func NewClient(cfg Config) (*RabbitClient, error) {
	con, err := newConnection(cfg)
	if err != nil {
		log.Printf("ERROR: error connecting to broker: %v", err)
		return nil, err
	}

	ch, err := connectToChannel(con, cfg)
	if ch == nil || err != nil {
		log.Printf("ERROR: error declaring channel: %v", err)
		return nil, err
	}

	return &RabbitClient{
		cfg:            cfg,
		conn:           con,
		Channel:        ch,
		shutdownSignal: make(chan struct{}),
	}, nil
}

// newConnection establishes a connection to the broker.
// All connections use a 2-second heartbeat interval so disconnections
// are detected quickly.
func newConnection(cfg Config) (*amqp.Connection, error) {
	scheme := "amqp"
	if cfg.Connection.IsSSLEnabled {
		scheme = "amqps"
	}
	hostURL := fmt.Sprintf("%s://%v:%v@%v:%v", scheme, cfg.Connection.User, cfg.Connection.Password, cfg.Connection.Host, cfg.Connection.Port)

	conn, err := amqp.DialConfig(hostURL, amqp.Config{
		Heartbeat: 2 * time.Second,
	})
	if err != nil {
		log.Printf("ERROR: error connecting to broker: %v", err)
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	log.Println("INFO: Connected to broker")
	return conn, nil
}

// connectToChannel creates and configures the channel topology: the main
// exchange, the durable work queue bound to it with dead-letter
// arguments, and the dead-letter exchange and queue.
func connectToChannel(rb *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := rb.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare the main exchange
	err = ch.ExchangeDeclare(
		cfg.Channel.ExchangeName,
		cfg.Channel.ExchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare dead letter exchange
	err = ch.ExchangeDeclare(
		cfg.DeadLetter.ExchangeName,
		"direct",
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare dead letter exchange: %w", err)
	}

	// Dead letter queue holds exhausted messages for manual inspection
	_, err = ch.QueueDeclare(
		cfg.DeadLetter.QueueName,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare dead letter queue: %w", err)
	}

	err = ch.QueueBind(
		cfg.DeadLetter.QueueName,
		cfg.DeadLetter.RoutingKey,
		cfg.DeadLetter.ExchangeName,
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind dead letter queue: %w", err)
	}

	// The work queue is a quorum queue so the broker tracks
	// x-delivery-count across requeues; rejects without requeue are
	// routed to the dead-letter exchange. The delivery limit is the
	// broker-side backstop: past it the broker dead-letters the message
	// itself, even if the consumer keeps requeueing.
	queueArgs := amqp.Table{
		"x-queue-type":              "quorum",
		"x-dead-letter-exchange":    cfg.DeadLetter.ExchangeName,
		"x-dead-letter-routing-key": cfg.DeadLetter.RoutingKey,
		"x-delivery-limit":          int32(cfg.MaxReceiveCount),
	}

	_, err = ch.QueueDeclare(
		cfg.Channel.QueueName,
		true,      // Durable
		false,     // AutoDelete
		false,     // Exclusive
		false,     // NoWait
		queueArgs, // Arguments including dead letter config
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		cfg.Channel.QueueName,
		cfg.Channel.RoutingKey,
		cfg.Channel.ExchangeName,
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	// The prefetch bound is the worker's in-flight concurrency limit at
	// the broker.
	if cfg.Channel.PrefetchCount > 0 {
		err = ch.Qos(cfg.Channel.PrefetchCount, 0, false)
		if err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	return ch, nil
}

// MaxReceiveCount is the configured dead-letter threshold.
func (rb *RabbitClient) MaxReceiveCount() int {
	return rb.cfg.MaxReceiveCount
}

// Depth returns the approximate number of messages waiting in the work
// queue, using a passive declare so the topology is never modified.
func (rb *RabbitClient) Depth(ctx context.Context) (int, error) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	q, err := rb.Channel.QueueDeclarePassive(
		rb.cfg.Channel.QueueName,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return q.Messages, nil
}

// GracefulShutdown closes the broker connection and channel cleanly.
func (rb *RabbitClient) GracefulShutdown() {
	rb.closeShutdownOnce.Do(func() {
		close(rb.shutdownSignal)
	})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.Channel != nil {
		if err := rb.Channel.Close(); err != nil {
			log.Printf("WARNING: error closing channel: %v", err)
		}
	}
	if rb.conn != nil {
		if err := rb.conn.Close(); err != nil {
			log.Printf("WARNING: error closing connection: %v", err)
		}
	}
}
