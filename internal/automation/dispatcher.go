package automation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/pagination"
)

const inboxDedupeConstraint = "ux_admin_inbox_items_dedupe_key"

// DispatchSummary reports what one dispatcher pass did.
type DispatchSummary struct {
	Processed   int `json:"processed"`
	Dispatched  int `json:"dispatched"`
	Rescheduled int `json:"rescheduled"`
	Failed      int `json:"failed"`
}

// EventListResult is one page of the event listing.
type EventListResult struct {
	Items      []models.AutomationEvent `json:"items"`
	NextCursor *string                  `json:"nextCursor,omitempty"`
}

// InboxListResult is one page of the inbox listing.
type InboxListResult struct {
	Items      []models.AdminInboxItem `json:"items"`
	NextCursor *string                 `json:"nextCursor,omitempty"`
}

// Service is the operator-facing API over events and the admin inbox.
type Service interface {
	Dispatch(ctx context.Context, limit int, now time.Time) (DispatchSummary, error)
	RetryEvent(ctx context.Context, eventID uuid.UUID, now time.Time) (*models.AutomationEvent, error)
	ListEvents(ctx context.Context, status, eventType string, limit int, cursor string) (*EventListResult, error)
	ListInbox(ctx context.Context, status, severity, itemType string, limit int, cursor string) (*InboxListResult, error)
	ActOnInbox(ctx context.Context, itemID uuid.UUID, action enums.InboxAction) (*models.AdminInboxItem, error)
}

// Dispatcher drains pending events into admin inbox items. A duplicate
// inbox insert means a previous pass already delivered the fact, so the
// event still counts as dispatched.
type Dispatcher struct {
	logg        *logger.Logger
	repo        Repository
	batchSize   int
	maxAttempts int
	backoff     time.Duration
}

// NewDispatcher builds the dispatcher.
func NewDispatcher(logg *logger.Logger, repo Repository, batchSize, maxAttempts int, backoff time.Duration) *Dispatcher {
	return &Dispatcher{
		logg:        logg,
		repo:        repo,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Dispatch processes up to limit due events as of now. One event's failure
// never aborts the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int, now time.Time) (DispatchSummary, error) {
	if limit <= 0 {
		limit = d.batchSize
	}
	now = now.UTC()

	events, err := d.repo.FindDueEvents(ctx, now, limit)
	if err != nil {
		return DispatchSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select due events")
	}

	var summary DispatchSummary
	for i := range events {
		summary.Processed++
		switch d.dispatchOne(ctx, &events[i], now) {
		case enums.EventStatusSent:
			summary.Dispatched++
		case enums.EventStatusFailed:
			summary.Failed++
		default:
			summary.Rescheduled++
		}
	}
	return summary, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event *models.AutomationEvent, now time.Time) enums.EventStatus {
	ctx = d.logg.WithEventID(ctx, event.ID.String())
	attempts := event.Attempts + 1

	item, err := buildInboxItem(event)
	if err == nil {
		err = d.repo.InsertInboxItem(ctx, item)
		if db.IsUniqueViolation(err, inboxDedupeConstraint) {
			err = nil
		}
	}
	if err == nil {
		if markErr := d.repo.MarkEventSent(ctx, event.ID, attempts); markErr != nil {
			d.logg.Error(ctx, "mark event sent", markErr)
			return enums.EventStatusPending
		}
		return enums.EventStatusSent
	}

	d.logg.Error(ctx, "dispatch event", err)
	if attempts >= d.maxAttempts {
		if markErr := d.repo.MarkEventFailed(ctx, event.ID, attempts, err.Error()); markErr != nil {
			d.logg.Error(ctx, "mark event failed", markErr)
		}
		return enums.EventStatusFailed
	}
	retryAt := now.Add(d.backoff * time.Duration(attempts))
	if markErr := d.repo.RescheduleEvent(ctx, event.ID, attempts, retryAt, err.Error()); markErr != nil {
		d.logg.Error(ctx, "reschedule event", markErr)
	}
	return enums.EventStatusPending
}

// RetryEvent puts a sent or failed event back on the dispatch queue.
func (d *Dispatcher) RetryEvent(ctx context.Context, eventID uuid.UUID, now time.Time) (*models.AutomationEvent, error) {
	ok, err := d.repo.ResetEvent(ctx, eventID, now.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset event")
	}
	if !ok {
		// Either the id is unknown or the event is still pending.
		event, err := d.findEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event is already pending dispatch").
			WithDetails(map[string]any{"status": event.Status})
	}
	return d.findEvent(ctx, eventID)
}

func (d *Dispatcher) findEvent(ctx context.Context, eventID uuid.UUID) (*models.AutomationEvent, error) {
	event, err := d.repo.FindEvent(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	return event, nil
}

func (d *Dispatcher) ListEvents(ctx context.Context, status, eventType string, limit int, cursor string) (*EventListResult, error) {
	params := ListEventsParams{Limit: limit}
	if status != "" {
		parsed, err := enums.ParseEventStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &parsed
	}
	if eventType != "" {
		parsed, err := enums.ParseAutomationEventType(eventType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		params.Type = &parsed
	}
	parsedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Cursor = parsedCursor

	events, next, err := d.repo.ListEvents(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	result := &EventListResult{Items: events}
	if next != nil {
		encoded := pagination.EncodeCursor(*next)
		result.NextCursor = &encoded
	}
	return result, nil
}

func (d *Dispatcher) ListInbox(ctx context.Context, status, severity, itemType string, limit int, cursor string) (*InboxListResult, error) {
	params := ListInboxParams{Limit: limit}
	if status != "" {
		parsed, err := enums.ParseInboxStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &parsed
	}
	if severity != "" {
		parsed, err := enums.ParseInboxSeverity(severity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity filter")
		}
		params.Severity = &parsed
	}
	if itemType != "" {
		params.Type = &itemType
	}
	parsedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Cursor = parsedCursor

	items, next, err := d.repo.ListInboxItems(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inbox items")
	}
	result := &InboxListResult{Items: items}
	if next != nil {
		encoded := pagination.EncodeCursor(*next)
		result.NextCursor = &encoded
	}
	return result, nil
}

// ActOnInbox applies an operator action to an inbox item and returns the
// updated item. Re-applying the same action is a no-op.
func (d *Dispatcher) ActOnInbox(ctx context.Context, itemID uuid.UUID, action enums.InboxAction) (*models.AdminInboxItem, error) {
	target := action.TargetStatus()
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inbox action")
	}
	if _, err := d.repo.UpdateInboxStatus(ctx, itemID, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inbox item")
	}
	item, err := d.repo.FindInboxItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inbox item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inbox item")
	}
	return item, nil
}
