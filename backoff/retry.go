package backoff

import (
	"context"
	"time"

	cbackoff "github.com/cenkalti/backoff"
)

var _ cbackoff.BackOff = (*Strategy)(nil)

// NextBackOff implements [cbackoff.BackOff], so a Strategy can pace any
// retry loop built on github.com/cenkalti/backoff. It returns
// [cbackoff.Stop] once the strategy has failed.
func (s *Strategy) NextBackOff() time.Duration {
	d, err := s.Next()
	if err != nil {
		return cbackoff.Stop
	}
	return d
}

// Retry runs op until it succeeds, s is exhausted, or ctx is done. The
// strategy is reset before the first attempt. notify, if non-nil, is called
// after every failed attempt with the error and the delay before the next
// one.
//
// Retry returns nil on success, the last error from op once s is
// exhausted, or ctx.Err() if ctx ended first.
func Retry(ctx context.Context, s *Strategy, op func() error, notify func(err error, next time.Duration)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var n cbackoff.Notify
	if notify != nil {
		n = cbackoff.Notify(notify)
	}

	err := cbackoff.RetryNotify(cbackoff.Operation(op), cbackoff.WithContext(s, ctx), n)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
