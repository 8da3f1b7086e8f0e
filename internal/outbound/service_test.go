package outbound

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
)

func newServiceHarness(t *testing.T) (Service, *fakeRepo, *fakeAudit) {
	t.Helper()
	repo := newFakeRepo()
	auditW := &fakeAudit{}
	svc := NewService(testLogger(), fakeTxRunner{}, repo, auditW)
	return svc, repo, auditW
}

func TestSubmitCreatesJobWithInlineCampaign(t *testing.T) {
	svc, repo, auditW := newServiceHarness(t)

	job, err := svc.Submit(context.Background(), SubmitInput{
		Campaign: &CampaignSpec{
			Name:            "fraud alerts",
			Purpose:         enums.PurposeFraudAlert,
			AllowedChannels: []enums.Channel{enums.ChannelVoice, enums.ChannelSMS},
		},
		Channel:       enums.ChannelVoice,
		TargetAddress: "+1 (555) 010-9999",
		Payload:       []byte(`{"otp":"123456","note":"call ASAP"}`),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != enums.JobStatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}
	if job.TargetAddress != "+15550109999" {
		t.Fatalf("address not normalized: %s", job.TargetAddress)
	}
	if job.MaxAttempts != 2 {
		t.Fatalf("voice jobs default to 2 attempts, got %d", job.MaxAttempts)
	}
	if job.NextAttemptAt == nil || !job.NextAttemptAt.Equal(job.ScheduledAt) {
		t.Fatalf("next attempt must start at scheduled time: %+v", job)
	}
	if !strings.Contains(string(job.Payload), "[REDACTED]") {
		t.Fatalf("sensitive payload fields must be redacted: %s", job.Payload)
	}
	if len(repo.campaigns) != 1 {
		t.Fatalf("expected inline campaign created, got %d", len(repo.campaigns))
	}
	if len(auditW.entries) != 1 {
		t.Fatalf("expected submission audit entry, got %d", len(auditW.entries))
	}
}

func TestSubmitRejectsChannelNotAllowedByCampaign(t *testing.T) {
	svc, repo, _ := newServiceHarness(t)
	campaign := testCampaign(enums.PurposeServiceNotice)
	repo.campaigns[campaign.ID] = campaign

	_, err := svc.Submit(context.Background(), SubmitInput{
		CampaignID:    &campaign.ID,
		Channel:       enums.ChannelEmail,
		TargetAddress: "Alex@Example.com",
	})
	if err == nil {
		t.Fatal("expected channel rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newServiceHarness(t)

	cases := []struct {
		name string
		in   SubmitInput
	}{
		{"missing channel", SubmitInput{TargetAddress: "+15550001111"}},
		{"missing address", SubmitInput{Channel: enums.ChannelSMS}},
		{"missing campaign", SubmitInput{Channel: enums.ChannelSMS, TargetAddress: "+15550001111"}},
		{"bad max attempts", SubmitInput{
			Channel:       enums.ChannelSMS,
			TargetAddress: "+15550001111",
			MaxAttempts:   intPtr(0),
			Campaign: &CampaignSpec{
				Name:            "x",
				Purpose:         enums.PurposeServiceNotice,
				AllowedChannels: []enums.Channel{enums.ChannelSMS},
			},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), tc.in); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSubmitUnknownCampaignIsNotFound(t *testing.T) {
	svc, _, _ := newServiceHarness(t)
	missing := uuid.New()

	_, err := svc.Submit(context.Background(), SubmitInput{
		CampaignID:    &missing,
		Channel:       enums.ChannelSMS,
		TargetAddress: "+15550001111",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelTerminalJobIsNoOp(t *testing.T) {
	svc, repo, auditW := newServiceHarness(t)
	job := testJob(uuid.New())
	job.Status = enums.JobStatusSent
	repo.jobs[job.ID] = &job

	got, err := svc.Cancel(context.Background(), job.ID, CancelInput{ReasonCode: "customer_request"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != enums.JobStatusSent {
		t.Fatalf("terminal job must keep its status, got %s", got.Status)
	}
	if len(repo.transitions) != 0 {
		t.Fatal("terminal cancel must not touch the row")
	}
	if len(auditW.entries) != 0 {
		t.Fatal("no-op cancel must not audit")
	}
}

func TestCancelQueuedJob(t *testing.T) {
	svc, repo, auditW := newServiceHarness(t)
	job := testJob(uuid.New())
	repo.jobs[job.ID] = &job

	if _, err := svc.Cancel(context.Background(), job.ID, CancelInput{
		ReasonCode:    "customer_request",
		ReasonMessage: "asked via chat",
	}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if len(repo.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(repo.transitions))
	}
	tr := repo.transitions[0]
	if tr.from != enums.JobStatusQueued || tr.to != enums.JobStatusCancelled {
		t.Fatalf("unexpected transition %+v", tr)
	}
	if tr.updates["cancel_reason_code"] != "customer_request" {
		t.Fatalf("reason code not persisted: %+v", tr.updates)
	}
	if len(auditW.entries) != 1 {
		t.Fatalf("expected cancel audit entry, got %d", len(auditW.entries))
	}
}

func TestCancelRequiresReason(t *testing.T) {
	svc, repo, _ := newServiceHarness(t)
	job := testJob(uuid.New())
	repo.jobs[job.ID] = &job

	if _, err := svc.Cancel(context.Background(), job.ID, CancelInput{}); err == nil {
		t.Fatal("expected validation error for missing reason")
	}
}

func intPtr(v int) *int { return &v }
