package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/redaction"
)

// Entity kinds recorded in the audit trail.
const (
	EntityOutboundJob     = "outbound_job"
	EntityAutomationEvent = "automation_event"
	EntityAdminInboxItem  = "admin_inbox_item"
)

// Job actions.
const (
	ActionJobSubmitted             = "job.submitted"
	ActionJobVerificationRequired  = "job.verification_required"
	ActionJobVerificationConfirmed = "job.verification_confirmed"
	ActionJobSent                  = "job.sent"
	ActionJobRetryScheduled        = "job.retry_scheduled"
	ActionJobFailed                = "job.failed"
	ActionJobCancelled             = "job.cancelled"
)

// Entry is one state-changing action recorded for compliance.
type Entry struct {
	EntityKind string
	EntityID   uuid.UUID
	Action     string
	Detail     any
}

// Writer appends audit log rows. The append is best effort: a failed audit
// write is logged but never fails the action it describes.
type Writer struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewWriter builds an audit writer bound to the provided database.
func NewWriter(db *gorm.DB, logg *logger.Logger) *Writer {
	return &Writer{db: db, logg: logg}
}

// Record appends an entry using the writer's own connection.
func (w *Writer) Record(ctx context.Context, entry Entry) {
	w.RecordTx(ctx, nil, entry)
}

// RecordTx appends an entry inside the caller's transaction when tx is
// non-nil.
func (w *Writer) RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) {
	conn := w.db
	if tx != nil {
		conn = tx
	}
	if conn == nil {
		return
	}

	row := models.AuditLog{
		EntityKind: entry.EntityKind,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
	}
	if entry.Detail != nil {
		detail, err := json.Marshal(entry.Detail)
		if err == nil {
			row.Detail = redaction.Redact(detail)
		}
	}

	if err := conn.WithContext(ctx).Create(&row).Error; err != nil && w.logg != nil {
		logCtx := w.logg.WithFields(ctx, map[string]any{
			"entity_kind": entry.EntityKind,
			"entity_id":   entry.EntityID.String(),
			"action":      entry.Action,
		})
		w.logg.Error(logCtx, "audit write failed", err)
	}
}

// Tail returns the most recent entries for an entity, newest first. Only
// the read-facing API uses this; the pipeline itself never reads audit rows.
func (w *Writer) Tail(ctx context.Context, entityKind string, entityID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.AuditLog
	err := w.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", entityKind, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
