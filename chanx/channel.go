package chanx

import (
	"context"
	"sync"
	"time"
)

// Channel is an unbounded, closable FIFO queue for handing values between
// goroutines.
//
// Unlike a native Go channel, Send never blocks and never panics: once the
// channel is closed, Send reports false. Close also ends reception: every
// Receive and TryReceive after Close fails, even if values are still queued.
// Those values are only reachable through [Channel.Drain], which is how a
// host flushes the remainder at shutdown.
//
// For a single producer and a single consumer, values are received in the
// order they were sent. With several consumers no ordering or fairness
// between consumers is guaranteed.
type Channel[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool

	// wake is closed and replaced whenever the queue gains a value or the
	// channel closes, waking every waiter so it can re-check under mu.
	wake chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an open, empty Channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{
		wake: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Send enqueues v and wakes waiting receivers. It returns false, without
// enqueueing, if the channel has been closed.
func (c *Channel[T]) Send(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	c.queue = append(c.queue, v)
	c.broadcastLocked()
	return true
}

// Receive blocks until a value is available or the channel is closed. The
// second return value is false if the channel was closed before a value
// could be taken.
func (c *Channel[T]) Receive() (T, bool) {
	v, ok, _ := c.receive(nil, nil)
	return v, ok
}

// ReceiveContext is like [Channel.Receive] but unblocks early if ctx is
// canceled, returning the context error.
func (c *Channel[T]) ReceiveContext(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return c.receive(ctx.Done(), ctx.Err)
}

// TryReceive returns the front value without blocking. It returns false if
// the channel is empty or closed.
func (c *Channel[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		var zero T
		return zero, false
	}
	return c.popLocked()
}

// TryReceiveTimeout waits up to d for a value to appear, then behaves like
// [Channel.TryReceive]. A non-positive d is equivalent to TryReceive.
func (c *Channel[T]) TryReceiveTimeout(d time.Duration) (T, bool) {
	if d <= 0 {
		return c.TryReceive()
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	v, ok, _ := c.receive(ctx.Done(), nil)
	return v, ok
}

// receive waits for a value until abort is closed or the channel is
// closed. errFn, if non-nil, supplies the error reported on abort.
func (c *Channel[T]) receive(abort <-chan struct{}, errFn func() error) (T, bool, error) {
	var zero T
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return zero, false, nil
		}
		if v, ok := c.popLocked(); ok {
			c.mu.Unlock()
			return v, true, nil
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-wake:
		case <-abort:
			// a value may have raced the abort signal
			c.mu.Lock()
			closed := c.closed
			v, ok := zero, false
			if !closed {
				v, ok = c.popLocked()
			}
			c.mu.Unlock()
			if ok {
				return v, true, nil
			}
			if closed {
				return zero, false, nil
			}
			var err error
			if errFn != nil {
				err = errFn()
			}
			return zero, false, err
		}
	}
}

// Drain atomically removes and returns every queued value, in FIFO order.
// It never blocks, and returns nil if the channel is empty. Unlike the
// receive methods it keeps working after [Channel.Close], so values queued
// before the close can still be flushed.
func (c *Channel[T]) Drain() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil
	}

	out := c.queue
	c.queue = nil
	return out
}

// Close marks the channel closed and wakes every blocked receiver; all of
// them, and every later receive, fail. It is safe to call multiple times;
// only the first call has an effect.
func (c *Channel[T]) Close() {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.broadcastLocked()
		c.mu.Unlock()

		close(c.done)
	})
}

// Closed reports whether [Channel.Close] has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Done returns a channel that is closed when [Channel.Close] is called.
// This is useful for select statements that need to detect closure.
func (c *Channel[T]) Done() <-chan struct{} {
	return c.done
}

// Len returns the number of queued values.
// The value may be stale in concurrent contexts; use it for heuristics such
// as backpressure decisions, never for synchronization.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Empty reports whether the queue is empty. Like [Channel.Len], the result
// may be stale by the time it is observed.
func (c *Channel[T]) Empty() bool {
	return c.Len() == 0
}

func (c *Channel[T]) popLocked() (T, bool) {
	var zero T
	if len(c.queue) == 0 {
		return zero, false
	}

	v := c.queue[0]
	c.queue[0] = zero // release the reference for the GC
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	return v, true
}

func (c *Channel[T]) broadcastLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}
