package enums

import "fmt"

// JobStatus is the persisted state of an outbound job.
type JobStatus string

const (
	JobStatusQueued               JobStatus = "queued"
	JobStatusAwaitingVerification JobStatus = "awaiting_verification"
	JobStatusSent                 JobStatus = "sent"
	JobStatusFailed               JobStatus = "failed"
	JobStatusCancelled            JobStatus = "cancelled"
)

var validJobStatuses = []JobStatus{
	JobStatusQueued,
	JobStatusAwaitingVerification,
	JobStatusSent,
	JobStatusFailed,
	JobStatusCancelled,
}

// IsValid reports whether the value matches the canonical job status enum.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition may occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSent || s == JobStatusFailed || s == JobStatusCancelled
}

// ParseJobStatus converts raw input into JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}

// AttemptStatus is the final disposition of a single delivery attempt.
type AttemptStatus string

const (
	// AttemptStatusPending marks an attempt that was claimed but whose
	// outcome has not been recorded yet.
	AttemptStatusPending AttemptStatus = "pending"
	AttemptStatusSent    AttemptStatus = "sent"
	AttemptStatusFailed  AttemptStatus = "failed"
	// AttemptStatusDeferred marks an attempt that stopped at the
	// verification gate instead of reaching the provider.
	AttemptStatusDeferred AttemptStatus = "deferred"
)

// IsValid reports whether the value matches the canonical attempt status enum.
func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusPending, AttemptStatusSent, AttemptStatusFailed, AttemptStatusDeferred:
		return true
	}
	return false
}
