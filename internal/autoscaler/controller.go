package autoscaler

import (
	"context"
	"time"
)

// DepthReader is the queue depth signal. queue.Client satisfies it.
type DepthReader interface {
	Depth(ctx context.Context) (int, error)
}

// IdleLister reports which workers self-report idle. *fleet.Registry
// satisfies it.
type IdleLister interface {
	IdleWorkers(ctx context.Context) ([]string, error)
}

// QueueObserver records the depth gauge. *metrics.Metrics satisfies it.
type QueueObserver interface {
	ObserveQueueDepth(queue string, depth float64)
}

// Logger is the subset of the logger used by this package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Controller is the control loop. Not safe for concurrent Tick calls;
// Run serializes them.
type Controller struct {
	cfg      Config
	queue    DepthReader
	fleet    FleetDriver
	registry IdleLister
	metrics  QueueObserver
	log      Logger

	// lowSince marks when the fleet first exceeded the desired size.
	// Zero while the fleet is not oversized.
	lowSince   time.Time
	lastAction time.Time
}

// NewController wires the control loop.
func NewController(cfg Config, queue DepthReader, fleet FleetDriver, registry IdleLister, metrics QueueObserver, log Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		queue:    queue,
		fleet:    fleet,
		registry: registry,
		metrics:  metrics,
		log:      log,
	}
}

// desiredWorkers computes the target fleet size for a queue depth,
// clamped to the configured bounds.
func (c *Controller) desiredWorkers(depth int) int {
	throughput := c.cfg.ThroughputPerWorker
	if throughput <= 0 {
		throughput = 1
	}
	desired := (depth + throughput - 1) / throughput
	if desired < c.cfg.MinWorkers {
		desired = c.cfg.MinWorkers
	}
	if c.cfg.MaxWorkers > 0 && desired > c.cfg.MaxWorkers {
		desired = c.cfg.MaxWorkers
	}
	return desired
}

// Tick runs one control-loop iteration at the given time.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	depth, err := c.queue.Depth(ctx)
	if err != nil {
		// A blind controller must not act.
		c.log.Warn("queue depth unavailable, skipping tick", err)
		return err
	}
	if c.metrics != nil {
		c.metrics.ObserveQueueDepth("work", float64(depth))
	}

	current, err := c.fleet.CurrentSize(ctx)
	if err != nil {
		c.log.Warn("fleet size unavailable, skipping tick", err)
		return err
	}

	desired := c.desiredWorkers(depth)

	switch {
	case desired > current:
		c.lowSince = time.Time{}
		// The depth threshold damps small blips, but never holds a
		// fleet below the floor.
		if current >= c.cfg.MinWorkers && depth < c.cfg.ScaleOutThreshold {
			return nil
		}
		return c.scaleOut(ctx, now, current, desired)

	case desired < current:
		if c.lowSince.IsZero() {
			c.lowSince = now
			return nil
		}
		if now.Sub(c.lowSince) < c.cfg.SustainedWindow {
			return nil
		}
		return c.scaleIn(ctx, now, current, desired)

	default:
		c.lowSince = time.Time{}
		return nil
	}
}

// scaleOut launches workers immediately, at least MinIncrement at a
// time, never past the ceiling. No cooldown: a backlog surge must not
// wait out the timer from a previous action.
func (c *Controller) scaleOut(ctx context.Context, now time.Time, current, desired int) error {
	n := desired - current
	if n < c.cfg.MinIncrement {
		n = c.cfg.MinIncrement
	}
	if c.cfg.MaxWorkers > 0 && current+n > c.cfg.MaxWorkers {
		n = c.cfg.MaxWorkers - current
	}
	if n <= 0 {
		return nil
	}

	if err := c.fleet.Launch(ctx, n); err != nil {
		c.log.Error("scale-out failed", err, map[string]interface{}{"requested": n})
		return err
	}

	c.lastAction = now
	c.log.Info("scaled out", nil, map[string]interface{}{
		"launched": n,
		"current":  current,
		"desired":  desired,
	})
	return nil
}

// scaleIn terminates surplus workers, but only ones that self-report
// idle, never below the floor, and only after the cooldown.
func (c *Controller) scaleIn(ctx context.Context, now time.Time, current, desired int) error {
	if !c.lastAction.IsZero() && now.Sub(c.lastAction) < c.cfg.Cooldown {
		return nil
	}

	surplus := current - desired
	idle, err := c.registry.IdleWorkers(ctx)
	if err != nil {
		c.log.Warn("idle registry unavailable, skipping scale-in", err)
		return err
	}
	if len(idle) == 0 {
		return nil
	}
	if surplus > len(idle) {
		surplus = len(idle)
	}

	victims := idle[:surplus]
	if err := c.fleet.Terminate(ctx, victims); err != nil {
		c.log.Error("scale-in failed", err, map[string]interface{}{"requested": len(victims)})
		return err
	}

	c.lastAction = now
	c.lowSince = time.Time{}
	c.log.Info("scaled in", nil, map[string]interface{}{
		"terminated": len(victims),
		"current":    current,
		"desired":    desired,
	})
	return nil
}

// Run ticks at the configured interval until the context ends.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(ctx, now) //nolint:errcheck // failed ticks are logged and retried next interval
		}
	}
}
