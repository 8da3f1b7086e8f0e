package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// AutomationEvent is a durable, deduplicated operational fact. The unique
// dedupe key makes emission idempotent; only the dispatcher mutates rows.
type AutomationEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventType     enums.AutomationEventType `gorm:"column:event_type;type:text;not null;index" json:"eventType"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Status        enums.EventStatus         `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	Attempts      int                       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	NextAttemptAt time.Time                 `gorm:"column:next_attempt_at;not null" json:"nextAttemptAt"`
	LastError     *string                   `gorm:"column:last_error;type:text" json:"lastError,omitempty"`
	DedupeKey     string                    `gorm:"column:dedupe_key;type:text;not null;uniqueIndex:ux_automation_events_dedupe_key" json:"dedupeKey"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (AutomationEvent) TableName() string { return "automation_events" }
