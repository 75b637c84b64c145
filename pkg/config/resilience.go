package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultMaxBackoff = 5 * time.Second

// ResilienceConfig guards event publishing: a publish is retried with
// exponential backoff, and the breaker stops calling an unhealthy broker.
type ResilienceConfig struct {
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type RetryConfig struct {
	MaxAttempts    uint          `koanf:"maxattempts"`
	InitialBackoff time.Duration `koanf:"initialbackoff"`
	MaxBackoff     time.Duration `koanf:"maxbackoff"`
}

// Backoff returns the wait after the given failed attempt, starting at 1.
// A zero MaxBackoff leaves the doubling uncapped.
func (c *RetryConfig) Backoff(attempt uint) time.Duration {
	wait := c.InitialBackoff
	for i := uint(1); i < attempt; i++ {
		if c.MaxBackoff > 0 && wait >= c.MaxBackoff {
			break
		}
		wait *= 2
	}
	if c.MaxBackoff > 0 {
		return min(wait, c.MaxBackoff)
	}
	return wait
}

type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// Trips reports whether the breaker opens: more consecutive failures than
// allowed, or an error rate above the limit once enough calls were seen.
func (c *CircuitBreakerConfig) Trips(consecutiveFailures, failures, total uint32) bool {
	if consecutiveFailures > c.ConsecutiveFailures {
		return true
	}
	return total > c.ConsecutiveFailures && float64(failures)*100 > float64(c.ErrorRatePercent)*float64(total)
}

func (c *ResilienceConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- Publish retry ---\n  maxattempts: %d\n  initialbackoff: %s\n  maxbackoff: %s\n",
		c.Retry.MaxAttempts, c.Retry.InitialBackoff, c.Retry.MaxBackoff)
	fmt.Fprintf(&b, "\n--- Publish circuit breaker ---\n  consecutivefailures: %d\n  errorratepercent: %d\n  opentimeout: %s\n",
		c.CircuitBreaker.ConsecutiveFailures, c.CircuitBreaker.ErrorRatePercent, c.CircuitBreaker.OpenTimeout)
	return b.String()
}

func (c *ResilienceConfig) Validate() error {
	r, cb := &c.Retry, &c.CircuitBreaker
	if r.MaxAttempts == 0 {
		return fmt.Errorf("events.resilience.retry.maxattempts must be at least 1")
	}
	if r.InitialBackoff <= 0 {
		return fmt.Errorf("events.resilience.retry.initialbackoff must be positive")
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = max(defaultMaxBackoff, r.InitialBackoff)
	}
	if r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("events.resilience.retry.maxbackoff %s is below initialbackoff %s", r.MaxBackoff, r.InitialBackoff)
	}
	if cb.ConsecutiveFailures == 0 {
		return fmt.Errorf("events.resilience.circuitbreaker.consecutivefailures must be at least 1")
	}
	if cb.ErrorRatePercent < 0 || cb.ErrorRatePercent > 100 {
		return fmt.Errorf("events.resilience.circuitbreaker.errorratepercent must be within 0..100, got %d", cb.ErrorRatePercent)
	}
	if cb.OpenTimeout <= 0 {
		return fmt.Errorf("events.resilience.circuitbreaker.opentimeout must be positive")
	}
	return nil
}
