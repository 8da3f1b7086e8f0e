package enums

import "fmt"

// AutomationEventType maps to the facts the pipeline durably records.
type AutomationEventType string

const (
	EventFraudCaseCreated     AutomationEventType = "fraud_case_created"
	EventOutboundFailedMax    AutomationEventType = "outbound_failed_max_attempts"
	EventOTPVerificationStuck AutomationEventType = "otp_verification_stuck"
	EventDailySummaryReady    AutomationEventType = "daily_operational_summary_ready"
	EventCallAnalysisReady    AutomationEventType = "call_analysis_ready"
)

var validAutomationEventTypes = []AutomationEventType{
	EventFraudCaseCreated,
	EventOutboundFailedMax,
	EventOTPVerificationStuck,
	EventDailySummaryReady,
	EventCallAnalysisReady,
}

// IsValid reports whether the value matches the canonical event type enum.
func (e AutomationEventType) IsValid() bool {
	for _, candidate := range validAutomationEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAutomationEventType converts raw input into AutomationEventType.
func ParseAutomationEventType(value string) (AutomationEventType, error) {
	for _, candidate := range validAutomationEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid automation event type %q", value)
}

// EventStatus tracks delivery of an automation event to the admin inbox.
type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusSent    EventStatus = "sent"
	EventStatusFailed  EventStatus = "failed"
)

var validEventStatuses = []EventStatus{
	EventStatusPending,
	EventStatusSent,
	EventStatusFailed,
}

// IsValid reports whether the value matches the canonical event status enum.
func (s EventStatus) IsValid() bool {
	for _, candidate := range validEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEventStatus converts raw input into EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	for _, candidate := range validEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
