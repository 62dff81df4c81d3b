package queue

import (
	"context"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerDelivery implements the Delivery interface and wraps an AMQP
// delivery. Settlement (ack / requeue / dead-letter) happens exactly
// once; further settlement attempts fail with ErrAlreadySettled.
type ConsumerDelivery struct {
	client   *RabbitClient
	delivery *amqp.Delivery

	settleOnce sync.Once
	settled    bool
	settleErr  error
}

// WorkItem decodes and validates the payload at the queue boundary.
func (d *ConsumerDelivery) WorkItem() (WorkItem, error) {
	return decodeWorkItem(d.delivery.MessageId, d.delivery.Body, d.attemptCount())
}

// attemptCount derives the delivery attempt from the broker's
// x-delivery-count header (quorum queues). The first delivery has no
// header; a redelivered message without the header counts as 2.
func (d *ConsumerDelivery) attemptCount() int {
	if v, ok := d.delivery.Headers["x-delivery-count"]; ok {
		switch n := v.(type) {
		case int32:
			return int(n) + 1
		case int64:
			return int(n) + 1
		case int:
			return n + 1
		}
	}
	if d.delivery.Redelivered {
		return 2
	}
	return 1
}

// Ack removes the message from the queue.
func (d *ConsumerDelivery) Ack() error {
	return d.settle(func() error { return d.delivery.Ack(false) })
}

// Requeue returns the message to the queue for another attempt.
func (d *ConsumerDelivery) Requeue() error {
	return d.settle(func() error { return d.delivery.Nack(false, true) })
}

// DeadLetter rejects the message without requeue; the broker routes it
// to the dead-letter exchange declared on the work queue.
func (d *ConsumerDelivery) DeadLetter() error {
	return d.settle(func() error { return d.delivery.Nack(false, false) })
}

func (d *ConsumerDelivery) settle(fn func() error) error {
	already := true
	d.settleOnce.Do(func() {
		already = false
		d.settleErr = fn()
		d.settled = true
	})
	if already {
		return ErrAlreadySettled
	}
	return d.settleErr
}

// Extend is a best-effort keepalive. AMQP holds unacked deliveries for
// as long as the channel lives, so extension reduces to verifying the
// channel is still open. A failure here must never abort processing;
// callers log it and continue.
func (d *ConsumerDelivery) Extend(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	d.client.mu.RLock()
	defer d.client.mu.RUnlock()
	if d.client.Channel == nil || d.client.Channel.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

// Body returns the raw payload.
func (d *ConsumerDelivery) Body() []byte {
	return d.delivery.Body
}

// Consume starts consuming deliveries from the work queue. The returned
// channel is closed when consumption stops due to context cancellation,
// shutdown signal, or unrecoverable errors.
//
// Example:
//
//	wg := &sync.WaitGroup{}
//	deliveries := client.Consume(ctx, wg)
//	for d := range deliveries {
//	    // process, then settle exactly once
//	}
func (rb *RabbitClient) Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Delivery {
	outChan := make(chan Delivery, 16)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(outChan)
	outerLoop:
		for {
			select {
			case <-rb.shutdownSignal:
				log.Printf("INFO: Stopping consumer due to shutdown signal (queue=%s)", rb.cfg.Channel.QueueName)
				return
			case <-ctx.Done():
				log.Printf("INFO: Stopping consumer due to context cancellation (queue=%s)", rb.cfg.Channel.QueueName)
				return
			default:
				rb.mu.RLock()
				msgs, err := rb.Channel.Consume(
					rb.cfg.Channel.QueueName,
					"",    // consumer
					false, // autoAck
					false, // exclusive
					false, // noLocal
					false, // noWait
					nil,   // args
				)
				rb.mu.RUnlock()

				if err != nil {
					log.Printf("ERROR: Failed to establish consumer (queue=%s): %v", rb.cfg.Channel.QueueName, err)
					time.Sleep(100 * time.Millisecond)
					continue
				}

				for {
					select {
					case <-ctx.Done():
						log.Printf("INFO: Stopping consumer due to context cancellation (queue=%s)", rb.cfg.Channel.QueueName)
						return
					case <-rb.shutdownSignal:
						log.Printf("INFO: Stopping consumer due to shutdown signal (queue=%s)", rb.cfg.Channel.QueueName)
						return
					case msg, ok := <-msgs:
						if !ok {
							continue outerLoop
						}

						outChan <- &ConsumerDelivery{
							client:   rb,
							delivery: &msg,
						}
					}
				}
			}
		}
	}()
	return outChan
}
