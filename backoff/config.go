package backoff

import (
	"errors"
	"fmt"
	"time"
)

// Config is the declarative form of a [Strategy], suitable for YAML
// configuration files:
//
//	backoff:
//	  method: exponential
//	  initialDelay: 100ms
//	  maxDelay: 10s
//	  maxRetries: 5
type Config struct {
	Method       Method        `yaml:"method"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	MaxRetries   int           `yaml:"maxRetries"`
}

// DefaultConfig returns an exponential strategy starting at 100ms, capped at
// 30s, with 10 retries.
func DefaultConfig() Config {
	return Config{
		Method:       Exponential,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		MaxRetries:   10,
	}
}

// Validate reports every problem with c, joined.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Method.MarshalText(); err != nil {
		errs = append(errs, err)
	}
	if c.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("backoff: initialDelay %v is negative", c.InitialDelay))
	}
	if c.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("backoff: maxDelay %v is negative", c.MaxDelay))
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		errs = append(errs, fmt.Errorf("backoff: maxDelay %v is below initialDelay %v", c.MaxDelay, c.InitialDelay))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("backoff: maxRetries %d is negative", c.MaxRetries))
	}
	return errors.Join(errs...)
}

// FromConfig validates c and builds a Strategy from it.
func FromConfig(c Config) (*Strategy, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return New(c.Method, c.InitialDelay, c.MaxDelay, c.MaxRetries), nil
}

// Config returns the strategy's configuration.
func (s *Strategy) Config() Config {
	return Config{
		Method:       s.method,
		InitialDelay: s.initial,
		MaxDelay:     s.maxDelay,
		MaxRetries:   s.maxRetries,
	}
}
