package outbound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harborfin/contactdesk-backend/pkg/config"
)

func TestRetryPolicyFixed(t *testing.T) {
	policy := RetryPolicy{Policy: config.BackoffPolicyFixed, Base: 2 * time.Minute, Cap: time.Hour}

	assert.Equal(t, 2*time.Minute, policy.Delay(1))
	assert.Equal(t, 2*time.Minute, policy.Delay(5))
	assert.Equal(t, 2*time.Minute, policy.Delay(0))
}

func TestRetryPolicyExponential(t *testing.T) {
	policy := RetryPolicy{Policy: config.BackoffPolicyExponential, Base: time.Minute, Cap: time.Hour}

	assert.Equal(t, time.Minute, policy.Delay(1))
	assert.Equal(t, 2*time.Minute, policy.Delay(2))
	assert.Equal(t, 4*time.Minute, policy.Delay(3))
	assert.Equal(t, 32*time.Minute, policy.Delay(6))
}

func TestRetryPolicyExponentialCaps(t *testing.T) {
	policy := RetryPolicy{Policy: config.BackoffPolicyExponential, Base: time.Minute, Cap: time.Hour}

	assert.Equal(t, time.Hour, policy.Delay(7))
	assert.Equal(t, time.Hour, policy.Delay(50))
}

func TestRetryPolicyNextAttemptAt(t *testing.T) {
	policy := RetryPolicy{Policy: config.BackoffPolicyExponential, Base: time.Minute, Cap: time.Hour}
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(2*time.Minute), policy.NextAttemptAt(now, 2))
}
