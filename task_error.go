package threadkit

import (
	"errors"
	"fmt"
)

// IterationError attributes a failure to the thread and iteration that
// produced it. Every error passed to [Hooks.OnError] is an IterationError;
// a recovered panic appears as its [*PanicError] cause.
type IterationError struct {
	Thread    string
	Iteration int64
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("thread %q iteration %d failed: %v", e.Thread, e.Iteration, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}

// IsIterationError reports whether err (or any error in its chain) is an
// [*IterationError].
func IsIterationError(err error) bool {
	if err == nil {
		return false
	}
	var ie *IterationError
	return errors.As(err, &ie)
}

// IsPanic reports whether err (or any error in its chain) is a recovered
// [*PanicError].
func IsPanic(err error) bool {
	if err == nil {
		return false
	}
	var pe *PanicError
	return errors.As(err, &pe)
}

// CauseOf unwraps the first [*IterationError] in err's chain and returns
// its underlying cause. If err is not an IterationError, it is returned
// as-is. Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var ie *IterationError
	if errors.As(err, &ie) {
		return ie.Err
	}

	return err
}
