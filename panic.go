package threadkit

import (
	"fmt"
	"runtime"
)

// PanicError wraps a value recovered from a panicking [Func] together with
// the worker's stack trace at the point of the panic.
//
// The worker never re-raises it: the panic is logged, counted, and handed
// to [Hooks.OnError] inside an [*IterationError], and the loop carries on
// as if the iteration had returned an error.
type PanicError struct {
	// Value is what the thread's function passed to panic.
	Value any

	// Stack is the worker goroutine's trace at the panic, truncated to
	// 64 KiB.
	Stack string
}

// Error renders the panic value followed by the worker's stack.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it is an error, so a function that
// panics with an error can still be matched with errors.Is.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// maxPanicStack bounds the trace kept for one recovered panic.
const maxPanicStack = 64 << 10

// newPanicError captures the worker's stack, growing the buffer until the
// trace fits or maxPanicStack is reached.
func newPanicError(v any) *PanicError {
	buf := make([]byte, 4<<10)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) || len(buf) >= maxPanicStack {
			return &PanicError{Value: v, Stack: string(buf[:n])}
		}
		buf = make([]byte, 2*len(buf))
	}
}
