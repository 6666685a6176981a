// Package threadkit provides managed worker goroutines with cooperative
// lifecycles.
//
// A [Thread] owns at most one worker goroutine. The worker runs a [Func],
// then asks a [RepeatPolicy] whether to run it again and after what delay.
// Stopping is cooperative: [Thread.Stop] clears the running flag, wakes the
// worker from its wait and cancels the function's context, but never
// interrupts a function mid-iteration.
//
//	th := threadkit.New(func(ctx context.Context) error {
//	    return flush(ctx)
//	}, threadkit.WithName("flusher"))
//	th.Start()
//	...
//	th.StopAndJoin()
//
// # Polling
//
// [Poller] is a Thread whose repeat policy re-runs the function every
// [PollConfig.Interval], plus an optional uniformly sampled jitter, until
// [PollConfig.MaxCount] repeats have been granted:
//
//	p := threadkit.NewPoller(healthCheck, threadkit.PollConfig{
//	    Interval:  time.Second,
//	    JitterMin: -50 * time.Millisecond,
//	    JitterMax: 50 * time.Millisecond,
//	})
//	p.Start()
//
// # Lifecycle Hooks
//
// Behaviour around the loop is customised with [Hooks] passed through
// [WithHooks] rather than by embedding: OnStarted and OnFinished run on the
// worker, OnStopRequested and OnJoined on the caller of Stop/StopAndJoin,
// and OnError receives every failed iteration.
//
// # Failures
//
// Errors returned by the function and panics raised inside it are caught,
// logged through zap (see [WithLogger]), counted (see [WithMetrics]) and
// passed to Hooks.OnError as an [*IterationError]. They never stop the
// worker or the process. A function that returns its own cancelled
// context's error after Stop is treated as cooperating, not as failing; if
// the parent context from [WithContext] is cancelled while the thread is
// still running, that error is reported like any other.
//
// # Related Packages
//
// [github.com/baxromumarov/threadkit/chanx] provides the closable channel
// used to hand values to and from workers,
// [github.com/baxromumarov/threadkit/backoff] computes retry delays, and
// [github.com/baxromumarov/threadkit/logchan] moves log records from
// workers to a host-driven drain.
package threadkit
