package threadkit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noop(context.Context) error { return nil }

func TestPollerRepeatDecisionBounded(t *testing.T) {
	p := NewPoller(noop, PollConfig{Interval: 50 * time.Millisecond, MaxCount: 3})

	for i := 1; i <= 3; i++ {
		d, ok := p.ShouldRepeat()
		require.True(t, ok, "repeat %d must be granted", i)
		assert.Equal(t, 50*time.Millisecond, d, "no jitter configured")
		assert.Equal(t, i, p.Count())
	}

	_, ok := p.ShouldRepeat()
	assert.False(t, ok, "fourth decision must decline")
	assert.Equal(t, 3, p.Count(), "declined decisions must not count")

	_, ok = p.ShouldRepeat()
	assert.False(t, ok)
	assert.Equal(t, 3, p.Count())

	p.Reset()
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, 50*time.Millisecond, p.Interval(), "reset must not change configuration")
	assert.Equal(t, 3, p.MaxCount())

	_, ok = p.ShouldRepeat()
	assert.True(t, ok, "reset must grant a fresh budget")
}

func TestPollerRunsMaxCountPlusOne(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, PollConfig{Interval: time.Millisecond, MaxCount: 3}, WithLogger(zap.NewNop()))

	require.True(t, p.Start())
	waitDone(t, p.Thread)

	assert.Equal(t, int32(4), calls.Load(), "initial run plus three repeats")
	assert.Equal(t, 3, p.Count())
	assert.False(t, p.IsRunning())
}

func TestPollerUnlimitedUntilStopped(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, PollConfig{Interval: time.Millisecond})

	require.True(t, p.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 5 }, 2*time.Second, time.Millisecond)

	p.StopAndJoin()
	n := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no iteration may run after StopAndJoin")
	assert.GreaterOrEqual(t, p.Count(), 4)
}

func TestPollerJitter(t *testing.T) {
	p := NewPoller(noop, PollConfig{
		Interval:  100 * time.Millisecond,
		JitterMin: -10 * time.Millisecond,
		JitterMax: 30 * time.Millisecond,
	})

	var gotN int64
	p.randN = func(n int64) int64 {
		gotN = n
		return n - 1
	}

	d, ok := p.ShouldRepeat()
	require.True(t, ok)
	assert.Equal(t, int64(40*time.Millisecond), gotN, "sample span must be max-min")
	assert.Equal(t, 130*time.Millisecond-1, d, "offset must stay below the upper bound")

	p.randN = func(int64) int64 { return 0 }
	d, _ = p.ShouldRepeat()
	assert.Equal(t, 90*time.Millisecond, d, "offset must start at the lower bound")
}

func TestPollerJitterWithinBounds(t *testing.T) {
	p := NewPoller(noop, PollConfig{
		Interval:  time.Second,
		JitterMin: 5 * time.Millisecond,
		JitterMax: 15 * time.Millisecond,
	})

	for range 200 {
		d, ok := p.ShouldRepeat()
		require.True(t, ok)
		require.GreaterOrEqual(t, d, time.Second+5*time.Millisecond)
		require.Less(t, d, time.Second+15*time.Millisecond)
	}
}

func TestPollerJitterEqualBoundsAndClamp(t *testing.T) {
	p := NewPoller(noop, PollConfig{Interval: 10 * time.Millisecond})

	p.SetJitter(5*time.Millisecond, 5*time.Millisecond)
	d, _ := p.ShouldRepeat()
	assert.Equal(t, 15*time.Millisecond, d)

	p.SetJitter(-50*time.Millisecond, -40*time.Millisecond)
	d, _ = p.ShouldRepeat()
	assert.Zero(t, d, "negative totals must clamp to zero")

	lo, hi := p.Jitter()
	assert.Equal(t, -50*time.Millisecond, lo)
	assert.Equal(t, -40*time.Millisecond, hi)
}

func TestPollerSetters(t *testing.T) {
	p := NewPoller(noop, PollConfig{Interval: time.Second, MaxCount: 1})

	_, ok := p.ShouldRepeat()
	require.True(t, ok)

	p.SetMaxCount(2)
	assert.Equal(t, 1, p.Count(), "changing the bound keeps the count")
	_, ok = p.ShouldRepeat()
	assert.True(t, ok)

	p.SetMaxCount(Unlimited)
	for range 10 {
		_, ok = p.ShouldRepeat()
		require.True(t, ok)
	}

	p.SetInterval(time.Minute)
	d, _ := p.ShouldRepeat()
	assert.Equal(t, time.Minute, d)
	assert.Equal(t, PollConfig{Interval: time.Minute}, p.Config())

	mustPanic(t, "interval must be non-negative", func() { p.SetInterval(-1) })
	mustPanic(t, "jitter max", func() { p.SetJitter(2, 1) })
	mustPanic(t, "max count must be non-negative", func() { p.SetMaxCount(-1) })
}

func TestPollerInvalidConfig(t *testing.T) {
	mustPanic(t, "negative", func() { NewPoller(noop, PollConfig{Interval: -time.Second}) })
	mustPanic(t, "jitter max", func() {
		NewPoller(noop, PollConfig{JitterMin: time.Second, JitterMax: 0})
	})
	mustPanic(t, "non-nil fn", func() { NewPoller(nil, PollConfig{}) })

	err := PollConfig{Interval: -1, JitterMin: 1, MaxCount: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
	assert.Contains(t, err.Error(), "jitter")
	assert.Contains(t, err.Error(), "max count")
}

func TestPollerIgnoresForeignRepeatPolicy(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, PollConfig{MaxCount: 2}, WithRepeat(Once))

	require.True(t, p.Start())
	waitDone(t, p.Thread)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollerMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	p := NewPoller(noop, PollConfig{MaxCount: 2}, WithName("poll"), WithMetrics(m))

	require.True(t, p.Start())
	waitDone(t, p.Thread)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("poll")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.iterations.WithLabelValues("poll")))
}
