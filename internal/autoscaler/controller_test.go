package autoscaler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFleet struct {
	size       int
	launched   []int
	terminated [][]string
	launchErr  error
}

func (f *fakeFleet) CurrentSize(ctx context.Context) (int, error) { return f.size, nil }
func (f *fakeFleet) Launch(ctx context.Context, n int) error {
	if f.launchErr != nil {
		return f.launchErr
	}
	f.launched = append(f.launched, n)
	f.size += n
	return nil
}
func (f *fakeFleet) Terminate(ctx context.Context, ids []string) error {
	f.terminated = append(f.terminated, ids)
	f.size -= len(ids)
	return nil
}

type fakeDepth struct {
	depth int
	err   error
}

func (d *fakeDepth) Depth(ctx context.Context) (int, error) { return d.depth, d.err }

type fakeIdle struct {
	ids []string
	err error
}

func (i *fakeIdle) IdleWorkers(ctx context.Context) ([]string, error) { return i.ids, i.err }

type ctlLog struct{}

func (ctlLog) Info(msg string, err error, fields ...map[string]interface{})  {}
func (ctlLog) Warn(msg string, err error, fields ...map[string]interface{})  {}
func (ctlLog) Error(msg string, err error, fields ...map[string]interface{}) {}

func testControllerConfig() Config {
	return Config{
		Interval:            time.Second,
		ThroughputPerWorker: 10,
		ScaleOutThreshold:   1,
		MinIncrement:        2,
		SustainedWindow:     5 * time.Minute,
		Cooldown:            2 * time.Minute,
		MinWorkers:          1,
		MaxWorkers:          20,
	}
}

func newController(cfg Config, depth *fakeDepth, f *fakeFleet, idle *fakeIdle) *Controller {
	return NewController(cfg, depth, f, idle, nil, ctlLog{})
}

func TestDesiredWorkers(t *testing.T) {
	c := newController(testControllerConfig(), &fakeDepth{}, &fakeFleet{}, &fakeIdle{})

	cases := []struct {
		depth, want int
	}{
		{0, 1},    // floor
		{1, 1},
		{10, 1},
		{11, 2},
		{150, 15}, // 150 queued at 10 per worker
		{1000, 20}, // ceiling
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.desiredWorkers(tc.depth), "depth=%d", tc.depth)
	}
}

func TestScaleOutIsImmediate(t *testing.T) {
	f := &fakeFleet{size: 3}
	c := newController(testControllerConfig(), &fakeDepth{depth: 150}, f, &fakeIdle{})

	require.NoError(t, c.Tick(context.Background(), time.Now()))

	require.Len(t, f.launched, 1)
	assert.Equal(t, 12, f.launched[0]) // 15 desired - 3 current
	assert.Equal(t, 15, f.size)
}

func TestScaleOutHonorsMinIncrement(t *testing.T) {
	f := &fakeFleet{size: 1}
	// depth 11 -> desired 2, difference 1, but increment floor is 2
	c := newController(testControllerConfig(), &fakeDepth{depth: 11}, f, &fakeIdle{})

	require.NoError(t, c.Tick(context.Background(), time.Now()))

	require.Len(t, f.launched, 1)
	assert.Equal(t, 2, f.launched[0])
}

func TestScaleOutNeverPassesCeiling(t *testing.T) {
	f := &fakeFleet{size: 19}
	c := newController(testControllerConfig(), &fakeDepth{depth: 10_000}, f, &fakeIdle{})

	require.NoError(t, c.Tick(context.Background(), time.Now()))

	require.Len(t, f.launched, 1)
	assert.Equal(t, 1, f.launched[0])
	assert.Equal(t, 20, f.size)
}

func TestScaleOutBelowThresholdDoesNothing(t *testing.T) {
	cfg := testControllerConfig()
	cfg.ScaleOutThreshold = 50
	f := &fakeFleet{size: 1}
	c := newController(cfg, &fakeDepth{depth: 30}, f, &fakeIdle{})

	require.NoError(t, c.Tick(context.Background(), time.Now()))
	assert.Empty(t, f.launched)
}

func TestScaleInRequiresSustainedLowState(t *testing.T) {
	f := &fakeFleet{size: 10}
	idle := &fakeIdle{ids: []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9"}}
	c := newController(testControllerConfig(), &fakeDepth{depth: 0}, f, idle)

	start := time.Now()

	// First low sample only starts the window.
	require.NoError(t, c.Tick(context.Background(), start))
	assert.Empty(t, f.terminated)

	// Still inside the window: no action.
	require.NoError(t, c.Tick(context.Background(), start.Add(time.Minute)))
	assert.Empty(t, f.terminated)

	// Window elapsed: scale in to the floor.
	require.NoError(t, c.Tick(context.Background(), start.Add(6*time.Minute)))
	require.Len(t, f.terminated, 1)
	assert.Len(t, f.terminated[0], 9)
	assert.Equal(t, 1, f.size)
}

func TestScaleInSelectsOnlyIdleWorkers(t *testing.T) {
	f := &fakeFleet{size: 10}
	idle := &fakeIdle{ids: []string{"w4", "w7"}} // everyone else is busy
	c := newController(testControllerConfig(), &fakeDepth{depth: 0}, f, idle)

	start := time.Now()
	require.NoError(t, c.Tick(context.Background(), start))
	require.NoError(t, c.Tick(context.Background(), start.Add(6*time.Minute)))

	require.Len(t, f.terminated, 1)
	assert.ElementsMatch(t, []string{"w4", "w7"}, f.terminated[0])
	assert.Equal(t, 8, f.size)
}

func TestScaleInSkipsWhenNoIdleWorkers(t *testing.T) {
	f := &fakeFleet{size: 10}
	c := newController(testControllerConfig(), &fakeDepth{depth: 0}, f, &fakeIdle{})

	start := time.Now()
	require.NoError(t, c.Tick(context.Background(), start))
	require.NoError(t, c.Tick(context.Background(), start.Add(6*time.Minute)))

	assert.Empty(t, f.terminated)
}

func TestScaleOutIgnoresCooldown(t *testing.T) {
	f := &fakeFleet{size: 1}
	depth := &fakeDepth{depth: 30}
	c := newController(testControllerConfig(), depth, f, &fakeIdle{})

	start := time.Now()
	require.NoError(t, c.Tick(context.Background(), start))
	require.Len(t, f.launched, 1)

	// A surge 30s later launches again; there is no cooldown on the
	// way up.
	depth.depth = 150
	require.NoError(t, c.Tick(context.Background(), start.Add(30*time.Second)))
	require.Len(t, f.launched, 2)
	assert.Equal(t, 12, f.launched[1]) // 15 desired - 3 current
	assert.Equal(t, 15, f.size)
}

func TestCooldownDelaysScaleInAfterAction(t *testing.T) {
	cfg := testControllerConfig()
	cfg.Cooldown = 10 * time.Minute
	f := &fakeFleet{size: 1}
	depth := &fakeDepth{depth: 150}
	idle := &fakeIdle{ids: []string{
		"w1", "w2", "w3", "w4", "w5", "w6", "w7",
		"w8", "w9", "w10", "w11", "w12", "w13", "w14",
	}}
	c := newController(cfg, depth, f, idle)

	start := time.Now()
	require.NoError(t, c.Tick(context.Background(), start))
	require.Len(t, f.launched, 1)
	assert.Equal(t, 15, f.size)

	// Queue drains; the low window starts.
	depth.depth = 0
	require.NoError(t, c.Tick(context.Background(), start.Add(time.Minute)))

	// Window elapsed, but the cooldown since the launch still holds.
	require.NoError(t, c.Tick(context.Background(), start.Add(7*time.Minute)))
	assert.Empty(t, f.terminated)

	// Cooldown over: scale in.
	require.NoError(t, c.Tick(context.Background(), start.Add(11*time.Minute)))
	require.Len(t, f.terminated, 1)
	assert.Equal(t, 1, f.size)
}

func TestFleetBelowFloorIsRaisedDespiteThreshold(t *testing.T) {
	cfg := testControllerConfig()
	cfg.ScaleOutThreshold = 50
	cfg.MinWorkers = 2
	f := &fakeFleet{size: 0}
	c := newController(cfg, &fakeDepth{depth: 30}, f, &fakeIdle{})

	require.NoError(t, c.Tick(context.Background(), time.Now()))

	require.Len(t, f.launched, 1)
	assert.Equal(t, 3, f.launched[0]) // ceil(30/10), already past the floor
	assert.Equal(t, 3, f.size)
}

func TestBlindControllerDoesNotAct(t *testing.T) {
	f := &fakeFleet{size: 1}
	depth := &fakeDepth{err: errors.New("broker unavailable")}
	c := newController(testControllerConfig(), depth, f, &fakeIdle{})

	err := c.Tick(context.Background(), time.Now())
	require.Error(t, err)
	assert.Empty(t, f.launched)
	assert.Empty(t, f.terminated)
}

func TestScaleOutResetsLowWindow(t *testing.T) {
	f := &fakeFleet{size: 10}
	depth := &fakeDepth{depth: 0}
	idle := &fakeIdle{ids: []string{"w1", "w2"}}
	c := newController(testControllerConfig(), depth, f, idle)

	start := time.Now()
	require.NoError(t, c.Tick(context.Background(), start))

	// A burst interrupts the low state.
	depth.depth = 500
	require.NoError(t, c.Tick(context.Background(), start.Add(time.Minute)))

	// Low again: the window must restart, so no immediate scale-in.
	depth.depth = 0
	require.NoError(t, c.Tick(context.Background(), start.Add(6*time.Minute)))
	assert.Empty(t, f.terminated)
}
