package dispatch

import (
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 100 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// RetryConfig bounds the retry policy.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the initial attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Decision tells the dispatcher what to do with a failed event: requeue it
// into its original lane after the delay, or give up.
type Decision struct {
	Requeue bool
	After   time.Duration
}

// RetryPolicy decides requeue-with-backoff vs permanent failure per event.
type RetryPolicy struct {
	cfg RetryConfig
}

// NewRetryPolicy constructs a policy, clamping missing config to defaults.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &RetryPolicy{cfg: cfg}
}

// Decide increments the event's retry count and computes the exponential
// backoff delay (base * 2^retryCount, capped at MaxDelay). Once the count
// exceeds MaxAttempts the decision is to give up.
func (p *RetryPolicy) Decide(event *model.OrderEvent) Decision {
	event.RetryCount++
	if event.RetryCount > p.cfg.MaxAttempts {
		return Decision{}
	}

	delay := p.cfg.BaseDelay
	for i := 0; i < event.RetryCount; i++ {
		delay *= 2
		if delay >= p.cfg.MaxDelay {
			delay = p.cfg.MaxDelay
			break
		}
	}
	return Decision{Requeue: true, After: delay}
}
