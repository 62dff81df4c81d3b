package license

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisearch/ingest/internal/fault"
)

func newTestManager(max int, v Validator) *Manager {
	return NewManager(Config{MaxConcurrent: max, AcquireTimeout: time.Second}, v)
}

func TestAcquireRelease(t *testing.T) {
	m := newTestManager(2, nil)

	ok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.Active())

	require.NoError(t, m.Release())
	assert.Equal(t, 0, m.Active())
}

func TestAcquire_TimeoutReturnsFalseNotError(t *testing.T) {
	m := newTestManager(1, nil)

	ok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err = m.Acquire(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Release())
}

func TestRelease_WithoutAcquire_ProtocolFault(t *testing.T) {
	m := newTestManager(1, nil)

	err := m.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReleaseWithoutAcquire)
	assert.Equal(t, fault.Protocol, fault.KindOf(err))

	// Accounting must be untouched: a real acquire still works.
	ok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquire_InvalidLicense_ConsumesNoSlot(t *testing.T) {
	m := newTestManager(1, func() error { return errors.New("expired") })

	ok, err := m.Acquire(context.Background())
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLicenseInvalid)
	assert.Equal(t, 0, m.Active())
}

func TestConcurrent_NeverExceedsMax(t *testing.T) {
	const max = 3
	m := newTestManager(max, nil)

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		peak    atomic.Int64
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLicense(context.Background(), time.Second, func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(max))
	assert.Equal(t, 0, m.Active())
	assert.Equal(t, uint64(20), m.Stats().Acquisitions)
}

func TestWithLicense_ReleasesOnError(t *testing.T) {
	m := newTestManager(1, nil)

	err := m.WithLicense(context.Background(), time.Second, func(context.Context) error {
		return errors.New("conversion blew up")
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Active())
}

func TestWithLicense_ReleasesOnPanic(t *testing.T) {
	m := newTestManager(1, nil)

	assert.Panics(t, func() {
		_ = m.WithLicense(context.Background(), time.Second, func(context.Context) error {
			panic("sdk crashed")
		})
	})
	assert.Equal(t, 0, m.Active())
}

func TestWithLicense_ExhaustedIsResourceExhausted(t *testing.T) {
	m := newTestManager(1, nil)

	ok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	err = m.WithLicense(context.Background(), 20*time.Millisecond, func(context.Context) error {
		t.Fatal("fn must not run without a slot")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Equal(t, fault.ResourceExhausted, fault.KindOf(err))
}

func TestWithLicense_ZeroTimeoutUsesConfiguredDefault(t *testing.T) {
	m := NewManager(Config{MaxConcurrent: 1, AcquireTimeout: 20 * time.Millisecond}, nil)

	ok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Now()
	err = m.WithLicense(context.Background(), 0, func(context.Context) error {
		t.Fatal("fn must not run without a slot")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Less(t, time.Since(start), time.Second)
}
