package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// AdminInboxItem is the human-actionable derivative of automation events.
type AdminInboxItem struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type      string              `gorm:"column:type;type:text;not null;index" json:"type"`
	Severity  enums.InboxSeverity `gorm:"column:severity;type:text;not null" json:"severity"`
	Title     string              `gorm:"column:title;type:text;not null" json:"title"`
	Body      string              `gorm:"column:body;type:text;not null" json:"body"`
	LinkKind  *enums.LinkKind     `gorm:"column:link_kind;type:text" json:"linkKind,omitempty"`
	LinkID    *uuid.UUID          `gorm:"column:link_id;type:uuid" json:"linkId,omitempty"`
	Status    enums.InboxStatus   `gorm:"column:status;type:text;not null;default:'open';index" json:"status"`
	DedupeKey string              `gorm:"column:dedupe_key;type:text;not null;uniqueIndex:ux_admin_inbox_items_dedupe_key" json:"dedupeKey"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (AdminInboxItem) TableName() string { return "admin_inbox_items" }
