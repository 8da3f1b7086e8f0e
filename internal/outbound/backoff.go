package outbound

import (
	"time"

	"github.com/harborfin/contactdesk-backend/pkg/config"
)

// maxShift bounds the exponential doubling so the shift itself cannot
// overflow before the cap applies.
const maxShift = 16

// RetryPolicy computes when a failed job becomes due again.
type RetryPolicy struct {
	Policy string
	Base   time.Duration
	Cap    time.Duration
}

// NewRetryPolicy builds the policy from outbound configuration. The config
// layer has already validated the policy name and durations.
func NewRetryPolicy(cfg config.OutboundConfig) RetryPolicy {
	return RetryPolicy{
		Policy: cfg.BackoffPolicy,
		Base:   cfg.BackoffBase,
		Cap:    cfg.BackoffCap,
	}
}

// Delay returns the wait before the next attempt, given how many attempts
// have already been made.
func (p RetryPolicy) Delay(attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	if p.Policy == config.BackoffPolicyFixed {
		return p.Base
	}
	shift := attemptsMade - 1
	if shift > maxShift {
		shift = maxShift
	}
	delay := p.Base << shift
	if delay <= 0 || delay > p.Cap {
		delay = p.Cap
	}
	return delay
}

// NextAttemptAt returns the absolute due time for the next attempt.
func (p RetryPolicy) NextAttemptAt(now time.Time, attemptsMade int) time.Time {
	return now.Add(p.Delay(attemptsMade))
}
