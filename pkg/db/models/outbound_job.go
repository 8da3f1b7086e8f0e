package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// OutboundJob is one planned outbound communication. The row is mutated
// only by the runner, the verification gate, and explicit cancellation;
// once terminal it never changes again.
type OutboundJob struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CampaignID        uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null;index" json:"campaignId"`
	BankCustomerID    *uuid.UUID      `gorm:"column:bank_customer_id;type:uuid;index" json:"bankCustomerId,omitempty"`
	Channel           enums.Channel   `gorm:"column:channel;type:text;not null" json:"channel"`
	TargetAddress     string          `gorm:"column:target_address;type:text;not null" json:"-"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Status            enums.JobStatus `gorm:"column:status;type:text;not null;default:'queued';index" json:"status"`
	ScheduledAt       time.Time       `gorm:"column:scheduled_at;not null" json:"scheduledAt"`
	NextAttemptAt     *time.Time      `gorm:"column:next_attempt_at;index" json:"nextAttemptAt,omitempty"`
	AttemptCount      int             `gorm:"column:attempt_count;not null;default:0" json:"attemptCount"`
	MaxAttempts       int             `gorm:"column:max_attempts;not null" json:"maxAttempts"`
	LastErrorCode     *string         `gorm:"column:last_error_code;type:text" json:"lastErrorCode,omitempty"`
	CancelReasonCode  *string         `gorm:"column:cancel_reason_code;type:text" json:"cancelReasonCode,omitempty"`
	CancelReasonMsg   *string         `gorm:"column:cancel_reason_message;type:text" json:"cancelReasonMessage,omitempty"`
	OutcomeCode       *string         `gorm:"column:outcome_code;type:text" json:"outcomeCode,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (OutboundJob) TableName() string { return "outbound_jobs" }
