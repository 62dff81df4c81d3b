package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/cisearch/ingest/internal/fleet"
	"github.com/cisearch/ingest/internal/queue"
)

// Runner consumes the work queue and fans deliveries out to the
// processor on a bounded pool.
type Runner struct {
	cfg       Config
	queue     queue.Client
	processor *Processor
	registry  *fleet.Registry
	log       Logger

	pool   *ants.Pool
	active atomic.Int64

	cancelIntake context.CancelFunc
	cancelWork   context.CancelFunc
	done         chan struct{}
}

// NewRunner builds the pool and wires the consumer.
func NewRunner(cfg Config, q queue.Client, p *Processor, registry *fleet.Registry, log Logger) (*Runner, error) {
	pool, err := ants.NewPool(cfg.Concurrency, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:       cfg,
		queue:     q,
		processor: p,
		registry:  registry,
		log:       log,
		pool:      pool,
		done:      make(chan struct{}),
	}, nil
}

// Run consumes until the intake context is canceled. It blocks; the
// caller runs it in a goroutine and stops it through Shutdown.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	// Work outlives intake during shutdown: intake stops first, then
	// in-flight items get the drain window before workCtx is canceled.
	workCtx, cancelWork := context.WithCancel(ctx)
	r.cancelWork = cancelWork
	intakeCtx, cancelIntake := context.WithCancel(workCtx)
	r.cancelIntake = cancelIntake

	if r.registry != nil {
		r.registry.Report(workCtx, r.cfg.WorkerID, fleet.StateIdle) //nolint:errcheck // best effort
		go r.registry.Heartbeat(workCtx, r.cfg.WorkerID, r.state, func(err error) {
			r.log.Warn("fleet heartbeat failed", err, nil)
		})
	}

	var wg sync.WaitGroup
	deliveries := r.queue.Consume(intakeCtx, &wg)

	for d := range deliveries {
		delivery := d
		r.active.Add(1)
		err := r.pool.Submit(func() {
			defer r.active.Add(-1)
			r.processor.Process(workCtx, delivery)
		})
		if err != nil {
			// The pool is released only during shutdown; return the
			// message instead of dropping it.
			r.active.Add(-1)
			if reqErr := delivery.Requeue(); reqErr != nil {
				r.log.Error("failed to return message during shutdown", reqErr, nil)
			}
		}
	}
	wg.Wait()
}

// state reports busy while any delivery is in flight.
func (r *Runner) state() fleet.State {
	if r.active.Load() > 0 {
		return fleet.StateBusy
	}
	return fleet.StateIdle
}

// Shutdown implements the preemption protocol: stop intake, drain
// in-flight items inside the timeout, then release the pool. Items
// still running at the deadline are aborted by their context and
// requeue themselves through the failure path. The registry entry is
// removed so the controller sees the departure immediately.
func (r *Runner) Shutdown(ctx context.Context) error {
	if r.cancelIntake != nil {
		r.cancelIntake()
	}

	drainDeadline := time.After(r.cfg.DrainTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

drain:
	for r.active.Load() > 0 {
		select {
		case <-drainDeadline:
			r.log.Warn("drain deadline reached with items in flight", nil, map[string]interface{}{
				"in_flight": r.active.Load(),
			})
			break drain
		case <-ctx.Done():
			break drain
		case <-ticker.C:
		}
	}

	// Anything still running gets aborted by its context and requeues
	// itself through the failure path.
	if r.cancelWork != nil {
		r.cancelWork()
	}

	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
	}

	r.pool.Release()
	if r.registry != nil {
		r.registry.Remove(context.Background(), r.cfg.WorkerID) //nolint:errcheck // best effort
		r.registry.Close()                                      //nolint:errcheck
	}
	r.queue.GracefulShutdown()
	return nil
}
