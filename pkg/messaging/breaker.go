package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/gofulfillment/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// BreakerPublisher retries a failed publish with exponential backoff and stops
// calling the broker while the circuit is open.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   config.RetryConfig
}

func NewBreakerPublisher(next Publisher, cfg config.ResilienceConfig) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        "event-publisher-cb",
		MaxRequests: 3,
		Timeout:     cfg.CircuitBreaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.CircuitBreaker.Trips(counts.ConsecutiveFailures, counts.TotalFailures, counts.TotalSuccesses+counts.TotalFailures)
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about the broker
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		retry:   cfg.Retry,
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	var err error
	for attempt := uint(1); ; attempt++ {
		_, err = p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.next.Publish(ctx, event)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || attempt >= p.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retry.Backoff(attempt)):
		}
	}
	return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
}

// State reports the circuit state, for logs and probes.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}
