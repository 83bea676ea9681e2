// Package job holds pure scheduling policies for the verification queue,
// independent of any queue backend or persistence layer.
package job

import (
	"time"
)

const (
	defaultBackoffBase = 5 * time.Second
	defaultBackoffCap  = 5 * time.Minute
	defaultMaxAttempts = 3
)

// RetryPolicy makes the backoff delay a pure function of the attempt number
// so retry behavior is portable and testable without a live backend.
type RetryPolicy struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Cap bounds the delay regardless of attempt count.
	Cap time.Duration
	// MaxAttempts is the total number of executions allowed per job.
	MaxAttempts int
}

// DefaultRetryPolicy returns the policy used when no tunables are configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:        defaultBackoffBase,
		Cap:         defaultBackoffCap,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Sanitize applies guardrails to policy values loaded from env.
func (p *RetryPolicy) Sanitize() {
	if p.Base <= 0 {
		p.Base = defaultBackoffBase
	}
	if p.Cap < p.Base {
		p.Cap = defaultBackoffCap
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = defaultMaxAttempts
	}
}

// Backoff returns the delay before re-queueing after the given attempt.
// Attempt numbers start at 1 (the first execution); the delay doubles per
// attempt and is capped at p.Cap.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	if delay > p.Cap {
		return p.Cap
	}
	return delay
}

// Exhausted reports whether a job that just finished the given attempt has no
// retries left.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
