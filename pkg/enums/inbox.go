package enums

import "fmt"

// InboxSeverity ranks how urgently an inbox item needs a human.
type InboxSeverity string

const (
	SeverityInfo  InboxSeverity = "info"
	SeverityWarn  InboxSeverity = "warn"
	SeverityError InboxSeverity = "error"
)

var validInboxSeverities = []InboxSeverity{
	SeverityInfo,
	SeverityWarn,
	SeverityError,
}

// IsValid reports whether the value matches the canonical severity enum.
func (s InboxSeverity) IsValid() bool {
	for _, candidate := range validInboxSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInboxSeverity converts raw input into InboxSeverity.
func ParseInboxSeverity(value string) (InboxSeverity, error) {
	for _, candidate := range validInboxSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inbox severity %q", value)
}

// InboxStatus is the admin-facing lifecycle of an inbox item.
type InboxStatus string

const (
	InboxStatusOpen         InboxStatus = "open"
	InboxStatusAcknowledged InboxStatus = "acknowledged"
	InboxStatusResolved     InboxStatus = "resolved"
	InboxStatusDismissed    InboxStatus = "dismissed"
)

var validInboxStatuses = []InboxStatus{
	InboxStatusOpen,
	InboxStatusAcknowledged,
	InboxStatusResolved,
	InboxStatusDismissed,
}

// IsValid reports whether the value matches the canonical inbox status enum.
func (s InboxStatus) IsValid() bool {
	for _, candidate := range validInboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInboxStatus converts raw input into InboxStatus.
func ParseInboxStatus(value string) (InboxStatus, error) {
	for _, candidate := range validInboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inbox status %q", value)
}

// InboxAction is an operator action applied to an inbox item.
type InboxAction string

const (
	InboxActionAcknowledge InboxAction = "acknowledge"
	InboxActionResolve     InboxAction = "resolve"
	InboxActionDismiss     InboxAction = "dismiss"
)

// ParseInboxAction converts raw input into InboxAction.
func ParseInboxAction(value string) (InboxAction, error) {
	switch InboxAction(value) {
	case InboxActionAcknowledge, InboxActionResolve, InboxActionDismiss:
		return InboxAction(value), nil
	}
	return "", fmt.Errorf("invalid inbox action %q", value)
}

// TargetStatus returns the status the action transitions an item into, or
// an invalid status for an unknown action.
func (a InboxAction) TargetStatus() InboxStatus {
	switch a {
	case InboxActionAcknowledge:
		return InboxStatusAcknowledged
	case InboxActionResolve:
		return InboxStatusResolved
	case InboxActionDismiss:
		return InboxStatusDismissed
	}
	return ""
}

// LinkKind is the closed set of entities an inbox item may reference.
type LinkKind string

const (
	LinkKindJob          LinkKind = "job"
	LinkKindCase         LinkKind = "case"
	LinkKindConversation LinkKind = "conversation"
)

// IsValid reports whether the value matches the canonical link kind enum.
func (k LinkKind) IsValid() bool {
	return k == LinkKindJob || k == LinkKindCase || k == LinkKindConversation
}
