package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRetrySuccessAfterFailures(t *testing.T) {
	s := New(Linear, time.Millisecond, 0, 5)

	calls := 0
	var delays []time.Duration
	err := Retry(context.Background(), s, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	}, func(_ error, next time.Duration) {
		delays = append(delays, next)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestRetryExhausted(t *testing.T) {
	s := New(Exponential, time.Millisecond, 0, 2)
	lastErr := errors.New("final failure")

	calls := 0
	err := Retry(context.Background(), s, func() error {
		calls++
		return lastErr
	}, nil)

	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	assert.True(t, s.Failed())
}

func TestRetryResetsStrategy(t *testing.T) {
	s := New(Linear, time.Millisecond, 0, 1)
	s.Abort()

	err := Retry(context.Background(), s, func() error { return nil }, nil)
	require.NoError(t, err)
	assert.False(t, s.Failed(), "Retry must reset the strategy first")
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Linear, time.Second, 0, Unlimited)

	calls := 0
	err := Retry(ctx, s, func() error {
		calls++
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		return errors.New("trigger retry")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during the wait must stop retrying")
}

func TestNextBackOffStop(t *testing.T) {
	s := New(Linear, 5, 0, 1)
	assert.Equal(t, time.Duration(5), s.NextBackOff())
	assert.Equal(t, time.Duration(-1), s.NextBackOff(), "exhausted strategy must return Stop")
}

func TestConfigYAML(t *testing.T) {
	src := []byte("method: fibonacci\ninitialDelay: 250ms\nmaxDelay: 4s\nmaxRetries: 7\n")

	var c Config
	require.NoError(t, yaml.Unmarshal(src, &c))
	assert.Equal(t, Config{
		Method:       Fibonacci,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		MaxRetries:   7,
	}, c)

	s, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, c, s.Config())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := Config{Method: Method(7), InitialDelay: -1, MaxDelay: -1, MaxRetries: -1}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid method")
	assert.Contains(t, err.Error(), "initialDelay")
	assert.Contains(t, err.Error(), "maxRetries")

	_, err = FromConfig(Config{Method: Linear, InitialDelay: time.Second, MaxDelay: time.Millisecond})
	assert.Error(t, err)
}
