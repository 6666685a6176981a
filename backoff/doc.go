// Package backoff computes bounded retry delays.
//
// A [Strategy] hands out one delay per [Strategy.Next] call, growing by its
// [Method], capped at a maximum delay, until its retry budget is used up.
// It is a plain value generator: nothing sleeps or retries on its own.
// [Retry] is the convenience loop, built on github.com/cenkalti/backoff,
// for callers that want one.
package backoff
