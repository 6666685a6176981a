package threadkit

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Unlimited is the [PollConfig.MaxCount] value for a poller that repeats
// until stopped.
const Unlimited = 0

// PollConfig configures a [Poller].
//
//	poller:
//	  interval: 1s
//	  jitterMin: -100ms
//	  jitterMax: 100ms
//	  maxCount: 0
type PollConfig struct {
	// Interval is the base delay between iterations.
	Interval time.Duration `yaml:"interval"`

	// JitterMin and JitterMax bound a uniformly sampled offset in
	// [JitterMin, JitterMax) added to Interval on every repeat. Jitter is
	// disabled when both are zero. A negative total delay is clamped to 0.
	JitterMin time.Duration `yaml:"jitterMin"`
	JitterMax time.Duration `yaml:"jitterMax"`

	// MaxCount bounds the number of repeats. [Unlimited] (0) never stops
	// on its own.
	MaxCount int `yaml:"maxCount"`
}

// Validate reports every problem with c, joined.
func (c PollConfig) Validate() error {
	var errs []error
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("threadkit: poll interval %v is negative", c.Interval))
	}
	if c.JitterMax < c.JitterMin {
		errs = append(errs, fmt.Errorf("threadkit: jitter max %v is below jitter min %v", c.JitterMax, c.JitterMin))
	}
	if c.MaxCount < 0 {
		errs = append(errs, fmt.Errorf("threadkit: poll max count %d is negative", c.MaxCount))
	}
	return errors.Join(errs...)
}

// Poller is a [Thread] that re-runs its function at a fixed, optionally
// jittered, interval, up to a maximum number of repeats.
//
// The embedded Thread provides the lifecycle (Start, Stop, StopAndJoin,
// ...). Poller itself is the thread's [RepeatPolicy]; passing another one
// via [WithRepeat] has no effect.
type Poller struct {
	*Thread

	mu    sync.Mutex
	cfg   PollConfig
	count int
	randN func(n int64) int64
}

// NewPoller creates an idle Poller running fn.
// It panics if fn is nil or cfg is invalid.
func NewPoller(fn Func, cfg PollConfig, opts ...Option) *Poller {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	p := &Poller{
		cfg:   cfg,
		randN: rand.Int64N,
	}

	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithRepeat(p))
	p.Thread = New(fn, all...)

	return p
}

// ShouldRepeat implements [RepeatPolicy]. It declines once MaxCount repeats
// have been granted; otherwise it counts the repeat and returns the
// interval plus jitter.
func (p *Poller) ShouldRepeat() (time.Duration, bool) {
	p.mu.Lock()
	if p.cfg.MaxCount != Unlimited && p.count >= p.cfg.MaxCount {
		p.mu.Unlock()
		return 0, false
	}

	d := p.cfg.Interval
	if p.cfg.JitterMin != 0 || p.cfg.JitterMax != 0 {
		d += p.jitterLocked()
	}
	if d < 0 {
		d = 0
	}
	p.count++
	p.mu.Unlock()

	if p.Thread != nil {
		p.Thread.cfg.metrics.observePoll(p.Thread.cfg.name)
	}
	return d, true
}

func (p *Poller) jitterLocked() time.Duration {
	span := p.cfg.JitterMax - p.cfg.JitterMin
	if span <= 0 {
		return p.cfg.JitterMin
	}
	return p.cfg.JitterMin + time.Duration(p.randN(int64(span)))
}

// Count returns how many repeats have been granted since creation or the
// last [Poller.Reset].
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.count
}

// Reset zeroes the repeat count without touching the configuration or the
// worker. A running poller that had reached MaxCount but not yet exited is
// granted a fresh budget.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count = 0
}

// Config returns a copy of the current poll configuration.
func (p *Poller) Config() PollConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cfg
}

// Interval returns the base delay between iterations.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cfg.Interval
}

// SetInterval changes the base delay, effective from the next repeat.
// It panics if d is negative.
func (p *Poller) SetInterval(d time.Duration) {
	if d < 0 {
		panic("threadkit: poll interval must be non-negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg.Interval = d
}

// Jitter returns the jitter bounds.
func (p *Poller) Jitter() (lo, hi time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cfg.JitterMin, p.cfg.JitterMax
}

// SetJitter changes the jitter bounds [lo, hi); zero for both disables
// jitter. It panics if hi < lo.
func (p *Poller) SetJitter(lo, hi time.Duration) {
	if hi < lo {
		panic("threadkit: jitter max must not be below jitter min")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg.JitterMin, p.cfg.JitterMax = lo, hi
}

// MaxCount returns the repeat bound, [Unlimited] meaning none.
func (p *Poller) MaxCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cfg.MaxCount
}

// SetMaxCount changes the repeat bound. The current count is kept.
// It panics if n is negative.
func (p *Poller) SetMaxCount(n int) {
	if n < 0 {
		panic("threadkit: poll max count must be non-negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg.MaxCount = n
}
