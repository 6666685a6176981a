package backoff

import (
	"errors"
	"fmt"
	"math/bits"
	"time"
)

// ErrExhausted is returned by [Strategy.Next] when called after
// [Strategy.Failed] has become true. Callers should check Failed (or
// Remaining) before calling Next; hitting this error is a contract
// violation, not a condition to retry on.
var ErrExhausted = errors.New("backoff: retries exhausted")

// Unlimited is the MaxRetries value for a strategy that never fails on its
// own. Only [Strategy.Abort] makes such a strategy fail.
const Unlimited = 0

// Infinite is returned by [Strategy.Remaining] for an [Unlimited] strategy.
const Infinite = -1

// Method selects how successive delays grow.
type Method int

const (
	// Linear adds the initial delay on every step: d, 2d, 3d, ...
	Linear Method = iota

	// Exponential doubles from the initial delay: d, 2d, 4d, 8d, ...
	Exponential

	// Fibonacci starts at the initial delay and then adds the previous
	// delay to itself on every step.
	//
	// NOTE: this is a doubling sequence (d, 2d, 4d, ...), not a true
	// Fibonacci sequence. It is kept as-is until the intended retry
	// semantics are confirmed; see DESIGN.md.
	Fibonacci
)

// String returns the lower-case name of m.
func (m Method) String() string {
	switch m {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	case Fibonacci:
		return "fibonacci"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case Linear, Exponential, Fibonacci:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("backoff: invalid method %d", int(m))
	}
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (m *Method) UnmarshalText(text []byte) error {
	switch string(text) {
	case "linear", "LINEAR":
		*m = Linear
	case "exponential", "EXPONENTIAL":
		*m = Exponential
	case "fibonacci", "FIBONACCI":
		*m = Fibonacci
	default:
		return fmt.Errorf("backoff: unknown method %q", text)
	}
	return nil
}

// Strategy generates a bounded sequence of increasing retry delays.
//
// A Strategy is stateful and is not safe for concurrent use; guard it with
// your own synchronization if it is shared between goroutines.
//
//	s := backoff.New(backoff.Exponential, 100*time.Millisecond, time.Second, 5)
//	for !s.Failed() {
//	    if err := dial(); err == nil {
//	        break
//	    }
//	    d, _ := s.Next()
//	    time.Sleep(d)
//	}
type Strategy struct {
	method     Method
	initial    time.Duration
	maxDelay   time.Duration
	maxRetries int

	retry   int
	last    time.Duration
	aborted bool
}

// New creates a Strategy. A maxDelay of zero disables the cap, and a
// maxRetries of [Unlimited] never exhausts.
//
// New panics if method is unknown or any duration or count is negative.
func New(method Method, initial, maxDelay time.Duration, maxRetries int) *Strategy {
	s := &Strategy{}
	s.setMethod(method)
	s.setInitialDelay(initial)
	s.setMaxDelay(maxDelay)
	s.setMaxRetries(maxRetries)
	return s
}

// Next computes and returns the next delay, advancing the retry number by
// one. It returns [ErrExhausted] without changing state if [Strategy.Failed]
// is already true.
func (s *Strategy) Next() (time.Duration, error) {
	if s.Failed() {
		return 0, ErrExhausted
	}

	switch s.method {
	case Linear:
		s.last = saturatingAdd(s.last, s.initial)

	case Exponential:
		exp := s.retry
		if s.maxRetries != Unlimited && s.maxRetries < exp {
			exp = s.maxRetries
		}
		s.last = shiftLeft(s.initial, exp)

	case Fibonacci:
		if s.last == 0 {
			s.last = s.initial
		} else {
			s.last = saturatingAdd(s.last, s.last)
		}
	}

	if s.maxDelay > 0 && s.last > s.maxDelay {
		s.last = s.maxDelay
	}

	s.retry++
	return s.last, nil
}

// Failed reports whether the retry budget is used up, or the strategy was
// aborted. An [Unlimited] strategy only fails once aborted.
func (s *Strategy) Failed() bool {
	if s.aborted {
		return true
	}
	if s.maxRetries == Unlimited {
		return false
	}
	return s.retry >= s.maxRetries
}

// Remaining returns the number of delays Next will still hand out, or
// [Infinite] for an [Unlimited] strategy that has not been aborted.
func (s *Strategy) Remaining() int {
	if s.aborted {
		return 0
	}
	if s.maxRetries == Unlimited {
		return Infinite
	}
	if s.retry >= s.maxRetries {
		return 0
	}
	return s.maxRetries - s.retry
}

// Reset restarts the sequence without changing the configuration.
func (s *Strategy) Reset() {
	s.retry = 0
	s.last = 0
	s.aborted = false
}

// Abort makes [Strategy.Failed] true immediately. [Strategy.Reset] or any
// setter clears it.
func (s *Strategy) Abort() {
	s.aborted = true
	if s.maxRetries != Unlimited {
		s.retry = s.maxRetries
	}
}

// Method returns the configured growth method.
func (s *Strategy) Method() Method { return s.method }

// InitialDelay returns the configured first-step delay.
func (s *Strategy) InitialDelay() time.Duration { return s.initial }

// MaxDelay returns the configured cap, zero meaning uncapped.
func (s *Strategy) MaxDelay() time.Duration { return s.maxDelay }

// MaxRetries returns the configured retry budget.
func (s *Strategy) MaxRetries() int { return s.maxRetries }

// RetryNumber returns how many delays Next has handed out since the last
// reset.
func (s *Strategy) RetryNumber() int { return s.retry }

// LastDelay returns the delay most recently returned by Next, or zero.
func (s *Strategy) LastDelay() time.Duration { return s.last }

// SetMethod changes the growth method and resets progress.
func (s *Strategy) SetMethod(m Method) {
	s.setMethod(m)
	s.Reset()
}

// SetInitialDelay changes the first-step delay and resets progress.
func (s *Strategy) SetInitialDelay(d time.Duration) {
	s.setInitialDelay(d)
	s.Reset()
}

// SetMaxDelay changes the cap and resets progress.
func (s *Strategy) SetMaxDelay(d time.Duration) {
	s.setMaxDelay(d)
	s.Reset()
}

// SetMaxRetries changes the retry budget and resets progress.
func (s *Strategy) SetMaxRetries(n int) {
	s.setMaxRetries(n)
	s.Reset()
}

func (s *Strategy) setMethod(m Method) {
	switch m {
	case Linear, Exponential, Fibonacci:
		s.method = m
	default:
		panic("backoff: invalid method")
	}
}

func (s *Strategy) setInitialDelay(d time.Duration) {
	if d < 0 {
		panic("backoff: initial delay must be non-negative")
	}
	s.initial = d
}

func (s *Strategy) setMaxDelay(d time.Duration) {
	if d < 0 {
		panic("backoff: maximum delay must be non-negative")
	}
	s.maxDelay = d
}

func (s *Strategy) setMaxRetries(n int) {
	if n < 0 {
		panic("backoff: maximum retries must be non-negative")
	}
	s.maxRetries = n
}

const maxDuration = time.Duration(1<<63 - 1)

func saturatingAdd(a, b time.Duration) time.Duration {
	if a > maxDuration-b {
		return maxDuration
	}
	return a + b
}

// shiftLeft returns d * 2^n, saturating instead of overflowing.
func shiftLeft(d time.Duration, n int) time.Duration {
	if d == 0 {
		return 0
	}
	if n >= 63 || bits.LeadingZeros64(uint64(d)) <= n {
		return maxDuration
	}
	return d << uint(n)
}
