package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	"github.com/harborfin/contactdesk-backend/pkg/pagination"
)

// Repository stores automation events and the admin inbox items derived
// from them. Event rows are only ever mutated by the dispatcher.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertEvent(ctx context.Context, event *models.AutomationEvent) error
	FindEvent(ctx context.Context, id uuid.UUID) (*models.AutomationEvent, error)
	FindDueEvents(ctx context.Context, now time.Time, limit int) ([]models.AutomationEvent, error)
	MarkEventSent(ctx context.Context, id uuid.UUID, attempts int) error
	RescheduleEvent(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
	ResetEvent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.AutomationEvent, *pagination.Cursor, error)
	CountEventsByTypeSince(ctx context.Context, eventType enums.AutomationEventType, since time.Time) (int64, error)
	InsertInboxItem(ctx context.Context, item *models.AdminInboxItem) error
	FindInboxItem(ctx context.Context, id uuid.UUID) (*models.AdminInboxItem, error)
	UpdateInboxStatus(ctx context.Context, id uuid.UUID, to enums.InboxStatus) (bool, error)
	ListInboxItems(ctx context.Context, params ListInboxParams) ([]models.AdminInboxItem, *pagination.Cursor, error)
	CountOpenInboxItems(ctx context.Context) (int64, error)
}

// ListEventsParams filters the event listing.
type ListEventsParams struct {
	Status *enums.EventStatus
	Type   *enums.AutomationEventType
	Limit  int
	Cursor *pagination.Cursor
}

// ListInboxParams filters the inbox listing.
type ListInboxParams struct {
	Status   *enums.InboxStatus
	Severity *enums.InboxSeverity
	Type     *string
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an automation repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) InsertEvent(ctx context.Context, event *models.AutomationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) FindEvent(ctx context.Context, id uuid.UUID) (*models.AutomationEvent, error) {
	var event models.AutomationEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repositoryImpl) FindDueEvents(ctx context.Context, now time.Time, limit int) ([]models.AutomationEvent, error) {
	var events []models.AutomationEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", enums.EventStatusPending, now).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *repositoryImpl) MarkEventSent(ctx context.Context, id uuid.UUID, attempts int) error {
	return r.db.WithContext(ctx).
		Model(&models.AutomationEvent{}).
		Where("id = ? AND status = ?", id, enums.EventStatusPending).
		Updates(map[string]any{
			"status":     enums.EventStatusSent,
			"attempts":   attempts,
			"last_error": nil,
		}).Error
}

func (r *repositoryImpl) RescheduleEvent(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.AutomationEvent{}).
		Where("id = ? AND status = ?", id, enums.EventStatusPending).
		Updates(map[string]any{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

func (r *repositoryImpl) MarkEventFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.AutomationEvent{}).
		Where("id = ? AND status = ?", id, enums.EventStatusPending).
		Updates(map[string]any{
			"status":     enums.EventStatusFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

// ResetEvent puts a sent or failed event back on the dispatch queue.
func (r *repositoryImpl) ResetEvent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AutomationEvent{}).
		Where("id = ? AND status IN ?", id, []enums.EventStatus{enums.EventStatusSent, enums.EventStatusFailed}).
		Updates(map[string]any{
			"status":          enums.EventStatusPending,
			"attempts":        0,
			"next_attempt_at": now,
			"last_error":      nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListEvents(ctx context.Context, params ListEventsParams) ([]models.AutomationEvent, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.AutomationEvent{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Type != nil {
		query = query.Where("event_type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var events []models.AutomationEvent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, nil, err
	}
	if len(events) > normalized {
		next := events[normalized]
		events = events[:normalized]
		return events, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return events, nil, nil
}

func (r *repositoryImpl) CountEventsByTypeSince(ctx context.Context, eventType enums.AutomationEventType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AutomationEvent{}).
		Where("event_type = ? AND created_at >= ?", eventType, since).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) InsertInboxItem(ctx context.Context, item *models.AdminInboxItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindInboxItem(ctx context.Context, id uuid.UUID) (*models.AdminInboxItem, error) {
	var item models.AdminInboxItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) UpdateInboxStatus(ctx context.Context, id uuid.UUID, to enums.InboxStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdminInboxItem{}).
		Where("id = ? AND status <> ?", id, to).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListInboxItems(ctx context.Context, params ListInboxParams) ([]models.AdminInboxItem, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.AdminInboxItem{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Severity != nil {
		query = query.Where("severity = ?", *params.Severity)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var items []models.AdminInboxItem
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	if len(items) > normalized {
		next := items[normalized]
		items = items[:normalized]
		return items, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return items, nil, nil
}

func (r *repositoryImpl) CountOpenInboxItems(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AdminInboxItem{}).
		Where("status = ?", enums.InboxStatusOpen).
		Count(&count).Error
	return count, err
}
