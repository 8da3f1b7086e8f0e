package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
)

func TestEmitStoresPendingEvent(t *testing.T) {
	repo := newFakeAutomationRepo()
	outbox := NewOutbox(testLogger(), repo)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := outbox.Emit(context.Background(), EmitInput{
		Type:      enums.EventOTPVerificationStuck,
		DedupeKey: "otp_stuck:abc",
		Payload:   map[string]any{"channel": "sms", "ssn": "123-45-6789"},
		Now:       now,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one event, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.Status != enums.EventStatusPending || !event.NextAttemptAt.Equal(now) {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.DedupeKey != "otp_stuck:abc" {
		t.Fatalf("unexpected dedupe key: %s", event.DedupeKey)
	}
	if !strings.Contains(string(event.Payload), "[REDACTED]") {
		t.Fatalf("sensitive payload fields must be masked: %s", event.Payload)
	}
	if strings.Contains(string(event.Payload), "123-45-6789") {
		t.Fatalf("ssn leaked into stored payload: %s", event.Payload)
	}
}

func TestEmitSuppressesDuplicate(t *testing.T) {
	repo := newFakeAutomationRepo()
	repo.insertEventErr = errors.New(`duplicate key value violates unique constraint "ux_automation_events_dedupe_key"`)
	outbox := NewOutbox(testLogger(), repo)

	err := outbox.Emit(context.Background(), EmitInput{
		Type:      enums.EventOutboundFailedMax,
		DedupeKey: "outbound_failed:abc",
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("duplicate emit must succeed, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("duplicate must not be recorded twice")
	}
}

func TestEmitWrapsInsertFailure(t *testing.T) {
	repo := newFakeAutomationRepo()
	repo.insertEventErr = errors.New("connection refused")
	outbox := NewOutbox(testLogger(), repo)

	err := outbox.Emit(context.Background(), EmitInput{
		Type:      enums.EventOutboundFailedMax,
		DedupeKey: "outbound_failed:abc",
		Now:       time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestEmitValidatesInput(t *testing.T) {
	repo := newFakeAutomationRepo()
	outbox := NewOutbox(testLogger(), repo)

	cases := []struct {
		name string
		in   EmitInput
	}{
		{"unknown type", EmitInput{Type: enums.AutomationEventType("mystery"), DedupeKey: "k", Now: time.Now()}},
		{"missing dedupe key", EmitInput{Type: enums.EventOutboundFailedMax, Now: time.Now()}},
		{"missing clock reading", EmitInput{Type: enums.EventOutboundFailedMax, DedupeKey: "k"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := outbox.Emit(context.Background(), tc.in)
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(repo.inserted) != 0 {
		t.Fatal("invalid input must not reach the store")
	}
}
