// Thread runs a function on one dedicated worker goroutine, with cooperative
// start/stop/join and injectable lifecycle hooks.
//
// A Thread is created with New and does nothing until Start. The worker
// calls the function once, then asks its RepeatPolicy whether to run again
// and after what delay. The wait between iterations is interrupted by Stop.
// Errors returned by the function and panics raised inside it are logged
// and reported to Hooks.OnError; they never escape the worker.
//
// Example usage:
//
//	th := threadkit.New(func(ctx context.Context) error {
//	    return sync(ctx)
//	}, threadkit.WithName("sync"))
//	th.Start()
//	defer th.StopAndJoin()
package threadkit

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Func is the unit of work executed by a [Thread].
//
// The context is cancelled when the thread is stopped; long-running
// functions should observe it (or [Thread.IsRunning]) to cooperate with
// shutdown. A Thread never interrupts a function forcibly.
type Func func(ctx context.Context) error

// State is the lifecycle state of a [Thread].
type State int32

const (
	// StateIdle is the state of a Thread that has never been started.
	StateIdle State = iota

	// StateRunning means a worker is executing iterations.
	StateRunning

	// StateStopRequested means Stop was called but the worker has not
	// exited yet.
	StateStopRequested

	// StateStopped means the worker exited. The Thread may be started again.
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopRequested:
		return "StopRequested"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Thread owns at most one worker goroutine at a time.
type Thread struct {
	fn  Func
	cfg config
	id  string
	log *zap.Logger

	running    atomic.Bool
	iterations atomic.Int64

	// mu serializes lifecycle transitions; the fields below are per run.
	mu     sync.Mutex
	state  State
	stop   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	joined chan struct{}
}

// New creates an idle Thread that will run fn.
// It panics if fn is nil.
func New(fn Func, opts ...Option) *Thread {
	if fn == nil {
		panic("threadkit: New requires non-nil fn")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := cfg.logger
	if l == nil {
		l = zap.L()
	}

	id := uuid.NewString()
	return &Thread{
		fn:  fn,
		cfg: cfg,
		id:  id,
		log: l.Named("threadkit").With(zap.String("thread", cfg.name), zap.String("id", id)),
	}
}

// Start spawns the worker. It returns false, doing nothing, if a worker is
// already alive, including one that was asked to stop but has not exited
// yet; call [Thread.StopAndJoin] first to restart a stopping thread.
func (t *Thread) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		select {
		case <-t.done:
		default:
			return false
		}
	}

	ctx, cancel := context.WithCancel(t.cfg.parent)
	stop := make(chan struct{})
	done := make(chan struct{})

	t.stop, t.cancel, t.done = stop, cancel, done
	t.state = StateRunning
	t.running.Store(true)
	t.cfg.metrics.setRunning(t.cfg.name, true)

	go t.run(ctx, cancel, stop, done)
	return true
}

// Stop asks the worker to halt after its current iteration and returns
// immediately. It wakes the worker if it is waiting between iterations and
// cancels the context passed to the function. Stop is a no-op unless the
// thread is running.
func (t *Thread) Stop() {
	t.mu.Lock()
	if !t.running.CompareAndSwap(true, false) {
		t.mu.Unlock()
		return
	}
	t.state = StateStopRequested
	close(t.stop)
	t.cancel()
	t.mu.Unlock()

	t.log.Debug("stop requested")
	if h := t.cfg.hooks.OnStopRequested; h != nil {
		h()
	}
}

// StopAndJoin calls [Thread.Stop] and then blocks until the worker has
// exited. There is no timeout: a function that ignores cancellation will
// block StopAndJoin for as long as it runs. Use
// [Thread.StopAndJoinContext] to bound the wait.
//
// StopAndJoin must not be called from inside the thread's own function;
// that deadlocks.
func (t *Thread) StopAndJoin() {
	t.Stop()

	done := t.currentDone()
	if done == nil {
		return
	}

	<-done
	t.joinedRun(done)
}

// StopAndJoinContext is like [Thread.StopAndJoin] but gives up waiting
// when ctx is done. A join that gives up is logged and returned as an
// error; the worker keeps running until its function returns.
func (t *Thread) StopAndJoinContext(ctx context.Context) error {
	t.Stop()

	done := t.currentDone()
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		err := fmt.Errorf("threadkit: join %q: %w", t.cfg.name, ctx.Err())
		t.log.Error("join failed", zap.Error(err))
		return err
	}

	t.joinedRun(done)
	return nil
}

// Close implements [io.Closer] by calling [Thread.StopAndJoin].
// It always returns nil.
func (t *Thread) Close() error {
	t.StopAndJoin()
	return nil
}

// IsRunning reports whether the worker is running and has not been asked
// to stop. It never blocks.
func (t *Thread) IsRunning() bool {
	return t.running.Load()
}

// State returns the current lifecycle state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Name returns the name set by [WithName].
func (t *Thread) Name() string { return t.cfg.name }

// ID returns the unique identifier attached to this thread's log entries.
func (t *Thread) ID() string { return t.id }

// Iterations returns how many times the function has been invoked, across
// all runs.
func (t *Thread) Iterations() int64 {
	return t.iterations.Load()
}

// Done returns a channel that is closed when the current (or most recent)
// worker exits. Before the first Start it returns a closed channel.
func (t *Thread) Done() <-chan struct{} {
	if done := t.currentDone(); done != nil {
		return done
	}
	return closedCh
}

func (t *Thread) currentDone() chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

// joinedRun fires OnJoined once per worker run, however many goroutines
// join it.
func (t *Thread) joinedRun(done chan struct{}) {
	t.mu.Lock()
	if t.joined == done {
		t.mu.Unlock()
		return
	}
	t.joined = done
	t.mu.Unlock()

	t.log.Debug("worker joined")
	if h := t.cfg.hooks.OnJoined; h != nil {
		h()
	}
}

func (t *Thread) run(ctx context.Context, cancel context.CancelFunc, stop <-chan struct{}, done chan struct{}) {
	if t.cfg.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer t.finish(cancel, done)

	t.log.Debug("worker started")
	if h := t.cfg.hooks.OnStarted; h != nil {
		h()
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		t.iterate(ctx)

		if !t.running.Load() {
			return
		}

		delay, repeat := t.cfg.repeat.ShouldRepeat()
		if !repeat {
			return
		}

		if delay > 0 {
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}

			select {
			case <-timer.C:
			case <-stop:
				return
			}
		}

		if !t.running.Load() {
			return
		}
	}
}

func (t *Thread) finish(cancel context.CancelFunc, done chan struct{}) {
	if h := t.cfg.hooks.OnFinished; h != nil {
		h()
	}

	t.cfg.metrics.setRunning(t.cfg.name, false)
	t.log.Debug("worker finished", zap.Int64("iterations", t.iterations.Load()))

	t.mu.Lock()
	t.running.Store(false)
	t.state = StateStopped
	close(done)
	t.mu.Unlock()

	cancel()
}

// iterate runs the function once and reports any failure.
func (t *Thread) iterate(ctx context.Context) {
	n := t.iterations.Add(1)
	start := time.Now()

	err := t.call(ctx)
	t.cfg.metrics.observeIteration(t.cfg.name)
	if err == nil {
		return
	}

	// A function returning its cancelled context's error after Stop is
	// cooperating, not failing. A cancelled parent context still counts as
	// a failure while the thread is meant to be running.
	if !t.running.Load() && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		t.log.Debug("iteration cancelled", zap.Int64("iteration", n))
		return
	}

	kind := failureError
	if errors.As(err, new(*PanicError)) {
		kind = failurePanic
	}
	t.cfg.metrics.observeFailure(t.cfg.name, kind)

	ie := &IterationError{Thread: t.cfg.name, Iteration: n, Err: err}
	t.log.Error("iteration failed",
		zap.Int64("iteration", n),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	if h := t.cfg.hooks.OnError; h != nil {
		h(ie)
	}
}

func (t *Thread) call(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return t.fn(ctx)
}
