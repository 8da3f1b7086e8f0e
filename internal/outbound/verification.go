package outbound

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/pkg/addressing"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

const (
	verificationStateKey = "verification_state"
	verificationVerified = "verified"

	// resumeBatchCap bounds how many parked jobs one verification event
	// can resume.
	resumeBatchCap = 10
)

// requiresVerification says whether a job may only go out after the
// customer passed identity verification. Sensitive purposes on phone
// channels are step-up gated; email notices carry no account detail that
// needs the gate.
func requiresVerification(purpose enums.CampaignPurpose, channel enums.Channel) bool {
	if !channel.IsPhoneBased() {
		return false
	}
	switch purpose {
	case enums.PurposeFraudAlert, enums.PurposeKYCUpdate:
		return true
	default:
		return false
	}
}

func verificationState(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ""
	}
	var state string
	if err := json.Unmarshal(fields[verificationStateKey], &state); err != nil {
		return ""
	}
	return state
}

// markVerified returns the payload with verification_state set to verified,
// leaving every other field untouched.
func markVerified(payload json.RawMessage) json.RawMessage {
	fields := map[string]json.RawMessage{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			fields = map[string]json.RawMessage{}
		}
	}
	fields[verificationStateKey] = json.RawMessage(`"` + verificationVerified + `"`)
	patched, err := json.Marshal(fields)
	if err != nil {
		return payload
	}
	return patched
}

// ResumeInput identifies which parked jobs a verification success unlocks.
type ResumeInput struct {
	BankCustomerID uuid.UUID
	Channel        enums.Channel
	TargetAddress  string
	Now            time.Time
}

// ResumeSummary reports what one verification event did.
type ResumeSummary struct {
	Matched int `json:"matched"`
	Resumed int `json:"resumed"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Gate resumes jobs parked in awaiting_verification once the customer has
// verified on the matching channel and address. Resumed jobs are retried
// synchronously so the customer hears back in the same interaction.
type Gate struct {
	logg   *logger.Logger
	repo   Repository
	runner *Runner
	audit  auditRecorder
}

// NewGate builds a verification gate sharing the runner's delivery path.
func NewGate(logg *logger.Logger, repo Repository, runner *Runner, auditW auditRecorder) *Gate {
	return &Gate{logg: logg, repo: repo, runner: runner, audit: auditW}
}

// Resume finds parked jobs for the verified (customer, channel, address)
// tuple, marks their payloads verified, requeues them, and immediately runs
// each one. A job cancelled since parking is skipped.
func (g *Gate) Resume(ctx context.Context, in ResumeInput) (ResumeSummary, error) {
	if in.BankCustomerID == uuid.Nil {
		return ResumeSummary{}, pkgerrors.New(pkgerrors.CodeValidation, "bank customer id is required")
	}
	if !in.Channel.IsValid() {
		return ResumeSummary{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown channel")
	}
	address, err := addressing.Normalize(in.Channel, in.TargetAddress)
	if err != nil {
		return ResumeSummary{}, err
	}
	now := in.Now.UTC()

	jobs, err := g.repo.FindAwaitingVerification(ctx, in.BankCustomerID, in.Channel, address, resumeBatchCap)
	if err != nil {
		return ResumeSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select parked jobs")
	}

	summary := ResumeSummary{Matched: len(jobs)}
	for i := range jobs {
		job := jobs[i]
		jobCtx := g.logg.WithJobID(ctx, job.ID.String())

		patched := markVerified(job.Payload)
		ok, err := g.repo.TransitionStatus(jobCtx, job.ID, enums.JobStatusAwaitingVerification, enums.JobStatusQueued,
			map[string]any{"payload": patched, "next_attempt_at": now})
		if err != nil {
			g.logg.Error(jobCtx, "requeue verified job", err)
			continue
		}
		if !ok {
			// The job was cancelled while parked; verification does not
			// revive it.
			continue
		}

		g.audit.Record(jobCtx, audit.Entry{
			EntityKind: audit.EntityOutboundJob,
			EntityID:   job.ID,
			Action:     audit.ActionJobVerificationConfirmed,
			Detail:     map[string]any{"channel": job.Channel},
		})
		summary.Resumed++

		job.Payload = patched
		job.Status = enums.JobStatusQueued
		due := now
		job.NextAttemptAt = &due

		campaign, err := g.repo.FindCampaign(jobCtx, job.CampaignID)
		if err != nil {
			// The job is requeued and due now; the next runner sweep
			// delivers it once the campaign reads again.
			g.logg.Error(jobCtx, "load campaign for resumed job", err)
			continue
		}
		outcome, err := g.runner.processJob(jobCtx, &job, campaign, now)
		if err != nil {
			g.logg.Error(jobCtx, "run resumed job", err)
		}
		switch outcome {
		case outcomeSent:
			summary.Sent++
		case outcomeFailed:
			summary.Failed++
		}
	}
	return summary, nil
}
