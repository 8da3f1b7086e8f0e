package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/pagination"
)

type rescheduleCall struct {
	id            uuid.UUID
	attempts      int
	nextAttemptAt time.Time
	lastError     string
}

type fakeAutomationRepo struct {
	events map[uuid.UUID]*models.AutomationEvent
	due    []models.AutomationEvent

	insertEventErr error
	inserted       []*models.AutomationEvent

	inboxInsertErr error
	inboxInserted  []*models.AdminInboxItem

	sent        []uuid.UUID
	rescheduled []rescheduleCall
	failed      []uuid.UUID

	resetOK bool

	items map[uuid.UUID]*models.AdminInboxItem
}

func newFakeAutomationRepo() *fakeAutomationRepo {
	return &fakeAutomationRepo{
		events:  map[uuid.UUID]*models.AutomationEvent{},
		items:   map[uuid.UUID]*models.AdminInboxItem{},
		resetOK: true,
	}
}

func (f *fakeAutomationRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAutomationRepo) InsertEvent(ctx context.Context, event *models.AutomationEvent) error {
	if f.insertEventErr != nil {
		return f.insertEventErr
	}
	event.ID = uuid.New()
	f.inserted = append(f.inserted, event)
	f.events[event.ID] = event
	return nil
}

func (f *fakeAutomationRepo) FindEvent(ctx context.Context, id uuid.UUID) (*models.AutomationEvent, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

func (f *fakeAutomationRepo) FindDueEvents(ctx context.Context, now time.Time, limit int) ([]models.AutomationEvent, error) {
	return f.due, nil
}

func (f *fakeAutomationRepo) MarkEventSent(ctx context.Context, id uuid.UUID, attempts int) error {
	f.sent = append(f.sent, id)
	if event, ok := f.events[id]; ok {
		event.Status = enums.EventStatusSent
		event.Attempts = attempts
	}
	return nil
}

func (f *fakeAutomationRepo) RescheduleEvent(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	f.rescheduled = append(f.rescheduled, rescheduleCall{id: id, attempts: attempts, nextAttemptAt: nextAttemptAt, lastError: lastError})
	return nil
}

func (f *fakeAutomationRepo) MarkEventFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	f.failed = append(f.failed, id)
	if event, ok := f.events[id]; ok {
		event.Status = enums.EventStatusFailed
		event.Attempts = attempts
	}
	return nil
}

func (f *fakeAutomationRepo) ResetEvent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	event, ok := f.events[id]
	if !ok || !f.resetOK {
		return false, nil
	}
	if event.Status == enums.EventStatusPending {
		return false, nil
	}
	event.Status = enums.EventStatusPending
	event.Attempts = 0
	event.NextAttemptAt = now
	event.LastError = nil
	return true, nil
}

func (f *fakeAutomationRepo) ListEvents(ctx context.Context, params ListEventsParams) ([]models.AutomationEvent, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeAutomationRepo) CountEventsByTypeSince(ctx context.Context, eventType enums.AutomationEventType, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAutomationRepo) InsertInboxItem(ctx context.Context, item *models.AdminInboxItem) error {
	if f.inboxInsertErr != nil {
		return f.inboxInsertErr
	}
	item.ID = uuid.New()
	f.inboxInserted = append(f.inboxInserted, item)
	f.items[item.ID] = item
	return nil
}

func (f *fakeAutomationRepo) FindInboxItem(ctx context.Context, id uuid.UUID) (*models.AdminInboxItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeAutomationRepo) UpdateInboxStatus(ctx context.Context, id uuid.UUID, to enums.InboxStatus) (bool, error) {
	item, ok := f.items[id]
	if !ok || item.Status == to {
		return false, nil
	}
	item.Status = to
	return true, nil
}

func (f *fakeAutomationRepo) ListInboxItems(ctx context.Context, params ListInboxParams) ([]models.AdminInboxItem, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeAutomationRepo) CountOpenInboxItems(ctx context.Context) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func newDispatcher(repo Repository) *Dispatcher {
	return NewDispatcher(testLogger(), repo, 50, 5, 5*time.Minute)
}

func pendingEvent(eventType enums.AutomationEventType, payload string) models.AutomationEvent {
	return models.AutomationEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(payload),
		Status:    enums.EventStatusPending,
		DedupeKey: "outbound_failed:" + uuid.NewString(),
	}
}

func TestDispatchCreatesInboxItemAndMarksSent(t *testing.T) {
	repo := newFakeAutomationRepo()
	jobID := uuid.New()
	event := pendingEvent(enums.EventOutboundFailedMax,
		`{"job_id":"`+jobID.String()+`","channel":"sms","error_code":"provider_rejected","attempts":3}`)
	repo.events[event.ID] = &event
	repo.due = []models.AutomationEvent{event}

	summary, err := newDispatcher(repo).Dispatch(context.Background(), 0, time.Now().UTC())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Dispatched != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(repo.inboxInserted) != 1 {
		t.Fatalf("expected one inbox item, got %d", len(repo.inboxInserted))
	}
	item := repo.inboxInserted[0]
	if item.DedupeKey != "event:"+event.DedupeKey {
		t.Fatalf("unexpected inbox dedupe key: %s", item.DedupeKey)
	}
	if item.Severity != enums.SeverityError {
		t.Fatalf("outbound failure is severity error, got %s", item.Severity)
	}
	if item.LinkKind == nil || *item.LinkKind != enums.LinkKindJob || item.LinkID == nil || *item.LinkID != jobID {
		t.Fatalf("expected job link, got %+v", item)
	}
	if len(repo.sent) != 1 {
		t.Fatalf("expected event marked sent, got %+v", repo.sent)
	}
}

func TestDispatchTreatsDuplicateInboxItemAsDelivered(t *testing.T) {
	repo := newFakeAutomationRepo()
	event := pendingEvent(enums.EventOutboundFailedMax, `{"channel":"sms"}`)
	repo.events[event.ID] = &event
	repo.due = []models.AutomationEvent{event}
	repo.inboxInsertErr = errors.New(`duplicate key value violates unique constraint "ux_admin_inbox_items_dedupe_key"`)

	summary, err := newDispatcher(repo).Dispatch(context.Background(), 0, time.Now().UTC())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Dispatched != 1 {
		t.Fatalf("duplicate insert must count as dispatched: %+v", summary)
	}
	if len(repo.sent) != 1 {
		t.Fatal("duplicate insert must still mark the event sent")
	}
	if len(repo.rescheduled) != 0 || len(repo.failed) != 0 {
		t.Fatal("duplicate insert is not a failure")
	}
}

func TestDispatchReschedulesThenFailsAtCeiling(t *testing.T) {
	repo := newFakeAutomationRepo()
	event := pendingEvent(enums.EventOutboundFailedMax, `{"channel":"sms"}`)
	repo.events[event.ID] = &event
	repo.due = []models.AutomationEvent{event}
	repo.inboxInsertErr = errors.New("connection refused")

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	summary, err := newDispatcher(repo).Dispatch(context.Background(), 0, now)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Rescheduled != 1 {
		t.Fatalf("first failure reschedules: %+v", summary)
	}
	if len(repo.rescheduled) != 1 {
		t.Fatalf("expected reschedule call, got %+v", repo.rescheduled)
	}
	call := repo.rescheduled[0]
	if call.attempts != 1 || !call.nextAttemptAt.Equal(now.Add(5*time.Minute)) {
		t.Fatalf("unexpected reschedule: %+v", call)
	}
	if !strings.Contains(call.lastError, "connection refused") {
		t.Fatalf("last error not recorded: %q", call.lastError)
	}

	// fifth attempt hits the ceiling
	event.Attempts = 4
	repo.due = []models.AutomationEvent{event}
	summary, err = newDispatcher(repo).Dispatch(context.Background(), 0, now)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("exhausted event must fail: %+v", summary)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected failed mark, got %+v", repo.failed)
	}
}

func TestRetryEventResetsTerminalEvent(t *testing.T) {
	repo := newFakeAutomationRepo()
	event := pendingEvent(enums.EventOutboundFailedMax, `{}`)
	event.Status = enums.EventStatusFailed
	event.Attempts = 5
	repo.events[event.ID] = &event

	now := time.Now().UTC()
	got, err := newDispatcher(repo).RetryEvent(context.Background(), event.ID, now)
	if err != nil {
		t.Fatalf("RetryEvent: %v", err)
	}
	if got.Status != enums.EventStatusPending || got.Attempts != 0 {
		t.Fatalf("event not reset: %+v", got)
	}
}

func TestRetryEventRejectsPendingEvent(t *testing.T) {
	repo := newFakeAutomationRepo()
	event := pendingEvent(enums.EventOutboundFailedMax, `{}`)
	repo.events[event.ID] = &event

	if _, err := newDispatcher(repo).RetryEvent(context.Background(), event.ID, time.Now().UTC()); err == nil {
		t.Fatal("expected state conflict for pending event")
	}
}

func TestActOnInboxIsIdempotent(t *testing.T) {
	repo := newFakeAutomationRepo()
	item := &models.AdminInboxItem{
		ID:        uuid.New(),
		Type:      string(enums.EventOutboundFailedMax),
		Severity:  enums.SeverityError,
		Status:    enums.InboxStatusOpen,
		DedupeKey: "event:x",
	}
	repo.items[item.ID] = item
	d := newDispatcher(repo)

	got, err := d.ActOnInbox(context.Background(), item.ID, enums.InboxActionAcknowledge)
	if err != nil {
		t.Fatalf("ActOnInbox: %v", err)
	}
	if got.Status != enums.InboxStatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", got.Status)
	}

	got, err = d.ActOnInbox(context.Background(), item.ID, enums.InboxActionAcknowledge)
	if err != nil {
		t.Fatalf("repeat ActOnInbox: %v", err)
	}
	if got.Status != enums.InboxStatusAcknowledged {
		t.Fatalf("repeat action must be a no-op, got %s", got.Status)
	}
}

func TestActOnInboxRejectsUnknownAction(t *testing.T) {
	repo := newFakeAutomationRepo()
	item := &models.AdminInboxItem{
		ID:        uuid.New(),
		Type:      string(enums.EventOutboundFailedMax),
		Severity:  enums.SeverityError,
		Status:    enums.InboxStatusResolved,
		DedupeKey: "event:y",
	}
	repo.items[item.ID] = item

	_, err := newDispatcher(repo).ActOnInbox(context.Background(), item.ID, enums.InboxAction(""))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if item.Status != enums.InboxStatusResolved {
		t.Fatalf("unknown action must not touch the item, got %s", item.Status)
	}
}

func TestBuildInboxItemDailySummary(t *testing.T) {
	event := pendingEvent(enums.EventDailySummaryReady,
		`{"date":"2026-08-01","fraud_cases":2,"outbound_queued":7,"outbound_failed":1,"open_inbox_items":4}`)
	event.DedupeKey = "daily_summary:2026-08-01"

	item, err := buildInboxItem(&event)
	if err != nil {
		t.Fatalf("buildInboxItem: %v", err)
	}
	if item.Severity != enums.SeverityInfo {
		t.Fatalf("summaries are informational, got %s", item.Severity)
	}
	if !strings.Contains(item.Title, "2026-08-01") {
		t.Fatalf("title must carry the date: %s", item.Title)
	}
	if !strings.Contains(item.Body, "Fraud cases: 2") {
		t.Fatalf("body must carry the counts: %s", item.Body)
	}
	if item.LinkKind != nil {
		t.Fatal("summaries have no link target")
	}
}

func TestBuildInboxItemUnknownTypeErrors(t *testing.T) {
	event := pendingEvent(enums.AutomationEventType("mystery"), `{}`)
	if _, err := buildInboxItem(&event); err == nil {
		t.Fatal("expected template error for unknown event type")
	}
}
