package automation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
)

// eventPayload covers the fields the inbox templates may pull from an
// event's payload. Absent fields render as generic text.
type eventPayload struct {
	JobID          *uuid.UUID `json:"job_id"`
	CaseID         *uuid.UUID `json:"case_id"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	Channel        string     `json:"channel"`
	ErrorCode      string     `json:"error_code"`
	Attempts       int        `json:"attempts"`
	Date           string     `json:"date"`
	FraudCases     int64      `json:"fraud_cases"`
	OutboundQueued int64      `json:"outbound_queued"`
	OutboundFailed int64      `json:"outbound_failed"`
	OpenInboxItems int64      `json:"open_inbox_items"`
}

// buildInboxItem renders one event into its admin inbox item. The item's
// dedupe key is derived from the event's, so one fact can never produce
// two inbox entries.
func buildInboxItem(event *models.AutomationEvent) (*models.AdminInboxItem, error) {
	var payload eventPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event payload")
		}
	}

	item := &models.AdminInboxItem{
		Type:      string(event.EventType),
		Status:    enums.InboxStatusOpen,
		DedupeKey: "event:" + event.DedupeKey,
	}

	switch event.EventType {
	case enums.EventOutboundFailedMax:
		item.Severity = enums.SeverityError
		item.Title = "Outbound delivery failed"
		item.Body = fmt.Sprintf("Delivery on %s failed after %d attempts (%s).",
			orUnknown(payload.Channel), payload.Attempts, orUnknown(payload.ErrorCode))
		link(item, enums.LinkKindJob, payload.JobID)
	case enums.EventOTPVerificationStuck:
		item.Severity = enums.SeverityWarn
		item.Title = "Customer verification stalled"
		item.Body = fmt.Sprintf("An outbound %s job has been waiting on customer verification past the alert threshold.",
			orUnknown(payload.Channel))
		link(item, enums.LinkKindJob, payload.JobID)
	case enums.EventFraudCaseCreated:
		item.Severity = enums.SeverityError
		item.Title = "New fraud case opened"
		item.Body = "A fraud case was opened from an automated detection and needs review."
		link(item, enums.LinkKindCase, payload.CaseID)
	case enums.EventCallAnalysisReady:
		item.Severity = enums.SeverityInfo
		item.Title = "Call analysis ready"
		item.Body = "Post-call analysis finished and is ready for review."
		link(item, enums.LinkKindConversation, payload.ConversationID)
	case enums.EventDailySummaryReady:
		item.Severity = enums.SeverityInfo
		item.Title = fmt.Sprintf("Daily operations summary for %s", orUnknown(payload.Date))
		item.Body = fmt.Sprintf("Fraud cases: %d. Outbound queued: %d, failed: %d. Open inbox items: %d.",
			payload.FraudCases, payload.OutboundQueued, payload.OutboundFailed, payload.OpenInboxItems)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no inbox template for event type")
	}
	return item, nil
}

func link(item *models.AdminInboxItem, kind enums.LinkKind, id *uuid.UUID) {
	if id == nil || *id == uuid.Nil {
		return
	}
	item.LinkKind = &kind
	item.LinkID = id
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
