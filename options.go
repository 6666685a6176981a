package threadkit

import (
	"context"

	"go.uber.org/zap"
)

// Hooks are optional callbacks fired at points of a [Thread]'s lifecycle.
// Any nil field is skipped.
type Hooks struct {
	// OnStarted runs inside the worker goroutine, before the first call of
	// the thread's function.
	OnStarted func()

	// OnStopRequested runs on the goroutine that called Stop, and only when
	// the call actually moved the thread out of the running state.
	OnStopRequested func()

	// OnFinished runs inside the worker goroutine after the last iteration,
	// before the running flag is cleared.
	OnFinished func()

	// OnJoined runs on the goroutine that called StopAndJoin, after the
	// worker has exited.
	OnJoined func()

	// OnError receives every error or recovered panic from the thread's
	// function, wrapped in an [*IterationError]. It runs inside the worker
	// goroutine.
	OnError func(err error)
}

type config struct {
	name       string
	parent     context.Context
	logger     *zap.Logger
	hooks      Hooks
	repeat     RepeatPolicy
	metrics    *Metrics
	lockThread bool
}

// Option configures a [Thread] or [Poller].
type Option func(*config)

func defaultConfig() config {
	return config{
		name:   "thread",
		parent: context.Background(),
		repeat: Once,
	}
}

// WithName sets the name used in logs, metrics labels and errors.
// It panics if name is empty.
func WithName(name string) Option {
	return func(c *config) {
		if name == "" {
			panic("threadkit: name must not be empty")
		}
		c.name = name
	}
}

// WithContext sets the parent of the context passed to the thread's
// function. Cancelling the parent does not stop the thread; it only
// cancels the context the function observes.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx == nil {
			panic("threadkit: nil context")
		}
		c.parent = ctx
	}
}

// WithLogger sets the logger used to report failed iterations and
// lifecycle events. The default is [zap.L] at construction time.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHooks registers lifecycle callbacks. A later WithHooks replaces an
// earlier one.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = h
	}
}

// WithRepeat sets the policy deciding whether, and after what delay, the
// thread's function runs again. The default is [Once].
func WithRepeat(p RepeatPolicy) Option {
	return func(c *config) {
		if p == nil {
			panic("threadkit: nil repeat policy")
		}
		c.repeat = p
	}
}

// WithMetrics reports iterations, failures and the running state to m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithLockOSThread wires the worker goroutine to its own OS thread for its
// whole lifetime, for functions that depend on thread-local state.
func WithLockOSThread() Option {
	return func(c *config) {
		c.lockThread = true
	}
}
