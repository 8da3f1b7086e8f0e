package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

func newGateHarness(t *testing.T) (*Gate, *runnerHarness) {
	t.Helper()
	h := newRunnerHarness(t)
	gate := NewGate(testLogger(), h.repo, h.runner, h.audit)
	return gate, h
}

func TestGateResumesAndSendsSynchronously(t *testing.T) {
	gate, h := newGateHarness(t)
	campaign := testCampaign(enums.PurposeFraudAlert)
	h.repo.campaigns[campaign.ID] = campaign

	customerID := uuid.New()
	job := testJob(campaign.ID)
	job.BankCustomerID = &customerID
	job.Status = enums.JobStatusAwaitingVerification
	job.NextAttemptAt = nil
	h.repo.awaiting = []models.OutboundJob{job}

	now := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	summary, err := gate.Resume(context.Background(), ResumeInput{
		BankCustomerID: customerID,
		Channel:        enums.ChannelSMS,
		TargetAddress:  "+1 (555) 000-1111",
		Now:            now,
	})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if summary.Matched != 1 || summary.Resumed != 1 || summary.Sent != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(h.sender.calls) != 1 {
		t.Fatalf("expected synchronous send, got %d calls", len(h.sender.calls))
	}

	requeue := h.repo.transitions[0]
	if requeue.from != enums.JobStatusAwaitingVerification || requeue.to != enums.JobStatusQueued {
		t.Fatalf("expected requeue transition, got %+v", requeue)
	}
	patched, ok := requeue.updates["payload"].(json.RawMessage)
	if !ok {
		t.Fatalf("expected patched payload in updates: %+v", requeue.updates)
	}
	if verificationState(patched) != verificationVerified {
		t.Fatalf("payload not marked verified: %s", patched)
	}

	var confirmed bool
	for _, entry := range h.audit.entries {
		if entry.Action == audit.ActionJobVerificationConfirmed {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatal("expected verification confirmation audit entry")
	}
}

func TestGateSkipsJobCancelledWhileParked(t *testing.T) {
	gate, h := newGateHarness(t)
	campaign := testCampaign(enums.PurposeFraudAlert)
	h.repo.campaigns[campaign.ID] = campaign

	customerID := uuid.New()
	job := testJob(campaign.ID)
	job.BankCustomerID = &customerID
	job.Status = enums.JobStatusAwaitingVerification
	h.repo.awaiting = []models.OutboundJob{job}
	h.repo.transitionOK = false

	summary, err := gate.Resume(context.Background(), ResumeInput{
		BankCustomerID: customerID,
		Channel:        enums.ChannelSMS,
		TargetAddress:  "+15550001111",
		Now:            time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if summary.Matched != 1 || summary.Resumed != 0 {
		t.Fatalf("cancelled job must not resume: %+v", summary)
	}
	if len(h.sender.calls) != 0 {
		t.Fatal("cancelled job must not send")
	}
}

func TestGateLeavesJobQueuedWhenCampaignReadFails(t *testing.T) {
	gate, h := newGateHarness(t)
	campaign := testCampaign(enums.PurposeFraudAlert)
	h.repo.campaigns[campaign.ID] = campaign

	customerID := uuid.New()
	job := testJob(campaign.ID)
	job.BankCustomerID = &customerID
	job.Status = enums.JobStatusAwaitingVerification
	h.repo.awaiting = []models.OutboundJob{job}
	h.repo.findCampaignErr = errors.New("connection refused")

	summary, err := gate.Resume(context.Background(), ResumeInput{
		BankCustomerID: customerID,
		Channel:        enums.ChannelSMS,
		TargetAddress:  "+15550001111",
		Now:            time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if summary.Resumed != 1 || summary.Sent != 0 {
		t.Fatalf("job must requeue without sending: %+v", summary)
	}
	if len(h.sender.calls) != 0 {
		t.Fatal("send must wait for the next sweep when the campaign read fails")
	}
	if len(h.repo.claims) != 0 {
		t.Fatal("no attempt may be claimed without the campaign")
	}
}

func TestGateRejectsInvalidInput(t *testing.T) {
	gate, _ := newGateHarness(t)

	if _, err := gate.Resume(context.Background(), ResumeInput{
		Channel:       enums.ChannelSMS,
		TargetAddress: "+15550001111",
		Now:           time.Now(),
	}); err == nil {
		t.Fatal("expected error for missing customer id")
	}

	if _, err := gate.Resume(context.Background(), ResumeInput{
		BankCustomerID: uuid.New(),
		Channel:        enums.Channel("fax"),
		TargetAddress:  "+15550001111",
		Now:            time.Now(),
	}); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestVerificationPolicy(t *testing.T) {
	cases := []struct {
		purpose enums.CampaignPurpose
		channel enums.Channel
		want    bool
	}{
		{enums.PurposeFraudAlert, enums.ChannelVoice, true},
		{enums.PurposeFraudAlert, enums.ChannelSMS, true},
		{enums.PurposeFraudAlert, enums.ChannelEmail, false},
		{enums.PurposeKYCUpdate, enums.ChannelWhatsApp, true},
		{enums.PurposeServiceNotice, enums.ChannelVoice, false},
		{enums.PurposeCollections, enums.ChannelSMS, false},
	}
	for _, tc := range cases {
		if got := requiresVerification(tc.purpose, tc.channel); got != tc.want {
			t.Fatalf("requiresVerification(%s, %s) = %v, want %v", tc.purpose, tc.channel, got, tc.want)
		}
	}
}

func TestMarkVerifiedPreservesOtherFields(t *testing.T) {
	patched := markVerified([]byte(`{"note":"hi","verification_state":"pending"}`))
	if verificationState(patched) != verificationVerified {
		t.Fatalf("expected verified state, got %s", patched)
	}
	if !strings.Contains(string(patched), `"note":"hi"`) {
		t.Fatalf("existing fields must survive: %s", patched)
	}

	patched = markVerified(nil)
	if verificationState(patched) != verificationVerified {
		t.Fatalf("empty payload should still verify: %s", patched)
	}
}
