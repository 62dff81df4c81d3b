package queue

import (
	"context"
	"sync"
)

// Client provides a high-level interface for the work queue. It
// abstracts connection management, consumption, and the broker-side
// depth signal read by the autoscaling controller.
//
// This interface is implemented by the concrete *RabbitClient type.
type Client interface {
	// Consume starts consuming deliveries from the work queue.
	// Returns a channel that delivers consumed messages; the channel is
	// closed when consumption stops.
	Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Delivery

	// Depth returns the approximate number of messages waiting in the
	// work queue. Used by the autoscaling controller.
	Depth(ctx context.Context) (int, error)

	// MaxReceiveCount is the configured dead-letter threshold.
	MaxReceiveCount() int

	// GracefulShutdown closes the broker connection and channel cleanly.
	GracefulShutdown()
}

// Delivery represents one consumed message. The worker drives its state
// machine off exactly one of Ack, Requeue, or DeadLetter per delivery.
type Delivery interface {
	// WorkItem returns the validated, typed work item decoded at the
	// queue boundary, or the Invalid fault produced during decoding.
	WorkItem() (WorkItem, error)

	// Ack removes the message from the queue (processing succeeded).
	Ack() error

	// Requeue returns the message to the queue for another attempt
	// (the visibility-reset path for retryable failures).
	Requeue() error

	// DeadLetter rejects the message without requeue, routing it to the
	// dead-letter queue for manual inspection.
	DeadLetter() error

	// Extend is a best-effort keepalive for long-running processing.
	// A failed extension must never abort processing.
	Extend(ctx context.Context) error

	// Body returns the raw payload.
	Body() []byte
}

// Logger is the subset of the logger used by this package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}
