package automation

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/redaction"
)

const eventDedupeConstraint = "ux_automation_events_dedupe_key"

// EmitInput describes one operational fact for the outbox. Now is the
// caller's clock reading; the outbox never reads the wall clock itself.
type EmitInput struct {
	Type      enums.AutomationEventType
	DedupeKey string
	Payload   any
	Now       time.Time
}

// Outbox persists automation events. Emission is idempotent by dedupe key:
// re-emitting an already stored fact is a silent success.
type Outbox struct {
	logg *logger.Logger
	repo Repository
}

// NewOutbox builds the event outbox.
func NewOutbox(logg *logger.Logger, repo Repository) *Outbox {
	return &Outbox{logg: logg, repo: repo}
}

// Emit stores the event as pending.
func (o *Outbox) Emit(ctx context.Context, in EmitInput) error {
	return o.emit(ctx, o.repo, in)
}

// EmitTx stores the event inside the caller's transaction so the fact
// commits or rolls back together with the state change it describes.
func (o *Outbox) EmitTx(ctx context.Context, tx *gorm.DB, in EmitInput) error {
	return o.emit(ctx, o.repo.WithTx(tx), in)
}

func (o *Outbox) emit(ctx context.Context, repo Repository, in EmitInput) error {
	if !in.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown event type")
	}
	if in.DedupeKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dedupe key is required")
	}
	if in.Now.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "emit time is required")
	}
	now := in.Now.UTC()

	var payload json.RawMessage
	if in.Payload != nil {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "marshal event payload")
		}
		payload = redaction.Redact(raw)
	}

	event := &models.AutomationEvent{
		EventType:     in.Type,
		Payload:       payload,
		Status:        enums.EventStatusPending,
		NextAttemptAt: now,
		DedupeKey:     in.DedupeKey,
	}
	err := repo.InsertEvent(ctx, event)
	if db.IsUniqueViolation(err, eventDedupeConstraint) {
		o.logg.Info(o.logg.WithFields(ctx, map[string]any{"dedupe_key": in.DedupeKey}),
			"duplicate event suppressed")
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist automation event")
	}
	return nil
}
