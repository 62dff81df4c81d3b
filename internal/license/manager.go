// Package license provides a bounded-concurrency gate for a scarce,
// commercially licensed conversion capability. At most MaxConcurrent
// callers hold a slot at any instant; everyone else blocks with a
// deadline. The gate is host-wide: a single Manager instance is shared
// by all in-flight work items of a worker process.
package license

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cisearch/ingest/internal/fault"
)

// Validator reports whether the underlying license is currently usable.
// The SDK integration supplies one; tests supply fakes. A nil validator
// means the license is assumed valid.
type Validator func() error

// Manager is a bounded-concurrency gate over the licensed capability.
// It is safe for concurrent use.
type Manager struct {
	sem            *semaphore.Weighted
	max            int
	acquireTimeout time.Duration
	validator      Validator

	mu           sync.Mutex
	active       int
	acquisitions uint64
	totalWait    time.Duration
	observer     func(Stats)
}

// Stats is a point-in-time snapshot of the gate's counters.
type Stats struct {
	MaxConcurrent int
	Active        int
	Acquisitions  uint64
	AvgWait       time.Duration
}

// NewManager constructs a Manager with a fixed slot count.
func NewManager(cfg Config, validator Validator) *Manager {
	max := cfg.MaxConcurrent
	if max < 1 {
		max = 1
	}
	return &Manager{
		sem:            semaphore.NewWeighted(int64(max)),
		max:            max,
		acquireTimeout: cfg.AcquireTimeout,
		validator:      validator,
	}
}

// Acquire blocks until a slot is available or the context expires.
// It returns false (with a nil error) on expiry rather than an error,
// so callers can translate the miss into their own retry policy.
// If the license itself is invalid, Acquire fails with ErrLicenseInvalid
// and consumes no slot.
func (m *Manager) Acquire(ctx context.Context) (bool, error) {
	if m.validator != nil {
		if err := m.validator(); err != nil {
			return false, fault.New(fault.Invalid, "license", ErrLicenseInvalid)
		}
	}

	start := time.Now()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		// Context deadline or cancellation: not an error of the gate.
		return false, nil
	}

	m.mu.Lock()
	m.active++
	m.acquisitions++
	m.totalWait += time.Since(start)
	obs, snap := m.observer, m.statsLocked()
	m.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
	return true, nil
}

// Release returns a slot to the gate. Calling Release without a matching
// Acquire fails with a protocol fault; the slot accounting is untouched.
func (m *Manager) Release() error {
	m.mu.Lock()
	if m.active == 0 {
		m.mu.Unlock()
		return fault.New(fault.Protocol, "license", ErrReleaseWithoutAcquire)
	}
	m.active--
	obs, snap := m.observer, m.statsLocked()
	m.mu.Unlock()

	m.sem.Release(1)
	if obs != nil {
		obs(snap)
	}
	return nil
}

// SetObserver registers a callback invoked with a fresh Stats snapshot
// after every successful acquire and release.
func (m *Manager) SetObserver(fn func(Stats)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// WithLicense runs fn while holding a slot, releasing it on every exit
// path including panics. The wait is bounded by timeout, falling back
// to the manager's configured acquire timeout when the caller passes
// zero (or the caller's context, whichever ends first); on expiry it
// returns a ResourceExhausted fault without invoking fn.
func (m *Manager) WithLicense(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = m.acquireTimeout
	}

	acquireCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ok, err := m.Acquire(acquireCtx)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.ResourceExhausted, "license", ErrAcquireTimeout)
	}

	defer m.Release() //nolint:errcheck // matching acquire is guaranteed above
	return fn(ctx)
}

// Active returns the number of slots currently held.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Stats returns a snapshot of the gate's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

func (m *Manager) statsLocked() Stats {
	s := Stats{
		MaxConcurrent: m.max,
		Active:        m.active,
		Acquisitions:  m.acquisitions,
	}
	if m.acquisitions > 0 {
		s.AvgWait = m.totalWait / time.Duration(m.acquisitions)
	}
	return s
}
