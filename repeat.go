package threadkit

import "time"

// RepeatPolicy decides, after each iteration, whether a [Thread] runs its
// function again and how long it waits first. It is only ever called from
// the worker goroutine.
type RepeatPolicy interface {
	ShouldRepeat() (delay time.Duration, repeat bool)
}

// RepeatFunc adapts an ordinary function to [RepeatPolicy].
type RepeatFunc func() (time.Duration, bool)

// ShouldRepeat calls f.
func (f RepeatFunc) ShouldRepeat() (time.Duration, bool) { return f() }

// Once runs the function exactly one time.
var Once RepeatPolicy = RepeatFunc(func() (time.Duration, bool) { return 0, false })
