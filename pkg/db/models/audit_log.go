package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is the append-only compliance trail of state-changing actions.
type AuditLog struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityKind string          `gorm:"column:entity_kind;type:text;not null;index:ix_audit_logs_entity" json:"entityKind"`
	EntityID   uuid.UUID       `gorm:"column:entity_id;type:uuid;not null;index:ix_audit_logs_entity" json:"entityId"`
	Action     string          `gorm:"column:action;type:text;not null" json:"action"`
	Detail     json.RawMessage `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }
