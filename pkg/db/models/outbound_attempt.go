package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// OutboundAttempt is the append-only record of one delivery attempt.
// The row is finalized exactly once with its outcome and never touched
// afterward.
type OutboundAttempt struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID             uuid.UUID           `gorm:"column:job_id;type:uuid;not null;index" json:"jobId"`
	AttemptNumber     int                 `gorm:"column:attempt_number;not null" json:"attemptNumber"`
	Status            enums.AttemptStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	ProviderMessageID *string             `gorm:"column:provider_message_id;type:text" json:"providerMessageId,omitempty"`
	ErrorCode         *string             `gorm:"column:error_code;type:text" json:"errorCode,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (OutboundAttempt) TableName() string { return "outbound_attempts" }
