package outbound

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/internal/providers"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

// Outcome codes persisted on terminal jobs.
const (
	outcomeDelivered     = "delivered"
	outcomeUndeliverable = "undeliverable"
)

// Provider failure codes recorded on attempts.
const (
	errCodeProviderUnavailable = "provider_unavailable"
	errCodeProviderRejected    = "provider_rejected"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type senderRegistry interface {
	SenderFor(channel enums.Channel) (providers.Sender, bool)
}

type eventEmitter interface {
	Emit(ctx context.Context, in automation.EmitInput) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// jobOutcome classifies what one pass over a job did.
type jobOutcome int

const (
	outcomeSkipped jobOutcome = iota
	outcomeSent
	outcomeFailed
	outcomeRequeued
	outcomeAwaiting
)

// RunSummary reports what one runner invocation did with the due batch.
type RunSummary struct {
	Processed            int `json:"processed"`
	Sent                 int `json:"sent"`
	Failed               int `json:"failed"`
	AwaitingVerification int `json:"awaitingVerification"`
}

// RunnerParams collects the runner's dependencies.
type RunnerParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Repo             Repository
	Senders          senderRegistry
	Outbox           eventEmitter
	Audit            auditRecorder
	Backoff          RetryPolicy
	BatchSize        int
	PausedRetryDelay time.Duration
}

// Runner drains due queued jobs: it claims an attempt, applies the
// verification gate, calls the channel provider, and records the outcome.
// Every claim is a conditional update so concurrent invocations stay safe.
type Runner struct {
	logg             *logger.Logger
	db               txRunner
	repo             Repository
	senders          senderRegistry
	outbox           eventEmitter
	audit            auditRecorder
	backoff          RetryPolicy
	batchSize        int
	pausedRetryDelay time.Duration
}

// NewRunner builds a runner from its dependencies.
func NewRunner(params RunnerParams) *Runner {
	return &Runner{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repo,
		senders:          params.Senders,
		outbox:           params.Outbox,
		audit:            params.Audit,
		backoff:          params.Backoff,
		batchSize:        params.BatchSize,
		pausedRetryDelay: params.PausedRetryDelay,
	}
}

// Run processes up to limit due jobs as of now. Jobs are isolated from each
// other: one job's failure or panic never aborts the rest of the batch.
func (r *Runner) Run(ctx context.Context, limit int, now time.Time) (RunSummary, error) {
	if limit <= 0 {
		limit = r.batchSize
	}
	now = now.UTC()

	jobs, err := r.repo.FindDueJobs(ctx, now, limit)
	if err != nil {
		return RunSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select due outbound jobs")
	}

	var summary RunSummary
	for i := range jobs {
		switch r.runOne(ctx, &jobs[i], now) {
		case outcomeSent:
			summary.Processed++
			summary.Sent++
		case outcomeFailed:
			summary.Processed++
			summary.Failed++
		case outcomeRequeued:
			summary.Processed++
		case outcomeAwaiting:
			summary.Processed++
			summary.AwaitingVerification++
		}
	}
	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, job *models.OutboundJob, now time.Time) (outcome jobOutcome) {
	ctx = r.logg.WithJobID(ctx, job.ID.String())
	defer func() {
		if rec := recover(); rec != nil {
			r.logg.Error(ctx, "job processing panicked", fmt.Errorf("panic: %v", rec))
			outcome = outcomeSkipped
		}
	}()

	campaign, err := r.repo.FindCampaign(ctx, job.CampaignID)
	if err != nil {
		// Without the campaign the paused check and the verification gate
		// cannot run. The job stays queued for the next sweep.
		r.logg.Error(ctx, "load campaign for job", err)
		return outcomeSkipped
	}

	outcome, err = r.processJob(ctx, job, campaign, now)
	if err != nil {
		r.logg.Error(ctx, "job processing failed", err)
	}
	return outcome
}

// processJob runs one delivery pass. The caller must hold a job it read as
// queued; the claim inside revalidates that read before anything happens.
func (r *Runner) processJob(ctx context.Context, job *models.OutboundJob, campaign *models.OutboundCampaign, now time.Time) (jobOutcome, error) {
	if campaign == nil {
		return outcomeSkipped, pkgerrors.New(pkgerrors.CodeInternal, "job processed without its campaign")
	}
	if campaign.Status == enums.CampaignStatusPaused {
		retryAt := now.Add(r.pausedRetryDelay)
		_, err := r.repo.TransitionStatus(ctx, job.ID, enums.JobStatusQueued, enums.JobStatusQueued,
			map[string]any{"next_attempt_at": retryAt})
		if err != nil {
			return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "defer job for paused campaign")
		}
		r.logg.Info(ctx, "campaign paused, job deferred")
		return outcomeSkipped, nil
	}

	attempt := &models.OutboundAttempt{
		JobID:         job.ID,
		AttemptNumber: job.AttemptCount + 1,
		Status:        enums.AttemptStatusPending,
	}
	claimed := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		ok, err := repo.ClaimAttempt(ctx, job.ID, job.AttemptCount)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		claimed = true
		return repo.InsertAttempt(ctx, attempt)
	})
	if err != nil {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery attempt")
	}
	if !claimed {
		// Another invocation won the claim since the batch was read.
		return outcomeSkipped, nil
	}
	job.AttemptCount = attempt.AttemptNumber

	if requiresVerification(campaign.Purpose, job.Channel) && verificationState(job.Payload) != verificationVerified {
		return r.deferForVerification(ctx, job, attempt)
	}

	sender, ok := r.senders.SenderFor(job.Channel)
	if !ok {
		return r.recordFailure(ctx, job, attempt, now, errCodeProviderUnavailable)
	}

	result, sendErr := sender.Send(ctx, providers.SendRequest{
		Channel: job.Channel,
		Address: job.TargetAddress,
		Payload: job.Payload,
	})
	if sendErr != nil {
		r.logg.Error(ctx, "provider send failed", sendErr)
		return r.recordFailure(ctx, job, attempt, now, errCodeProviderRejected)
	}
	return r.recordSent(ctx, job, attempt, result)
}

func (r *Runner) deferForVerification(ctx context.Context, job *models.OutboundJob, attempt *models.OutboundAttempt) (jobOutcome, error) {
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		if _, err := repo.TransitionStatus(ctx, job.ID, enums.JobStatusQueued, enums.JobStatusAwaitingVerification,
			map[string]any{"next_attempt_at": nil}); err != nil {
			return err
		}
		return repo.FinalizeAttempt(ctx, attempt.ID, enums.AttemptStatusDeferred, nil, nil)
	})
	if err != nil {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park job for verification")
	}

	r.audit.Record(ctx, audit.Entry{
		EntityKind: audit.EntityOutboundJob,
		EntityID:   job.ID,
		Action:     audit.ActionJobVerificationRequired,
		Detail:     map[string]any{"attempt_number": attempt.AttemptNumber, "channel": job.Channel},
	})
	r.logg.Info(ctx, "job awaiting customer verification")
	return outcomeAwaiting, nil
}

func (r *Runner) recordSent(ctx context.Context, job *models.OutboundJob, attempt *models.OutboundAttempt, result providers.SendResult) (jobOutcome, error) {
	transitioned := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		ok, err := repo.TransitionStatus(ctx, job.ID, enums.JobStatusQueued, enums.JobStatusSent,
			map[string]any{"next_attempt_at": nil, "outcome_code": outcomeDelivered})
		if err != nil {
			return err
		}
		transitioned = ok
		// The provider accepted the message either way, so the attempt is
		// finalized as sent even when cancellation won the race.
		return repo.FinalizeAttempt(ctx, attempt.ID, enums.AttemptStatusSent, &result.ProviderMessageID, nil)
	})
	if err != nil {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sent outcome")
	}
	if !transitioned {
		r.logg.Warn(ctx, "job left queued state mid-send, outcome not applied")
		return outcomeSkipped, nil
	}

	r.audit.Record(ctx, audit.Entry{
		EntityKind: audit.EntityOutboundJob,
		EntityID:   job.ID,
		Action:     audit.ActionJobSent,
		Detail: map[string]any{
			"attempt_number":      attempt.AttemptNumber,
			"provider_message_id": result.ProviderMessageID,
		},
	})
	r.logg.Info(ctx, "job delivered")
	return outcomeSent, nil
}

func (r *Runner) recordFailure(ctx context.Context, job *models.OutboundJob, attempt *models.OutboundAttempt, now time.Time, errCode string) (jobOutcome, error) {
	if job.AttemptCount < job.MaxAttempts {
		retryAt := r.backoff.NextAttemptAt(now, job.AttemptCount)
		err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := r.repo.WithTx(tx)
			if _, err := repo.TransitionStatus(ctx, job.ID, enums.JobStatusQueued, enums.JobStatusQueued,
				map[string]any{"next_attempt_at": retryAt, "last_error_code": errCode}); err != nil {
				return err
			}
			return repo.FinalizeAttempt(ctx, attempt.ID, enums.AttemptStatusFailed, nil, &errCode)
		})
		if err != nil {
			return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule retry")
		}

		r.audit.Record(ctx, audit.Entry{
			EntityKind: audit.EntityOutboundJob,
			EntityID:   job.ID,
			Action:     audit.ActionJobRetryScheduled,
			Detail: map[string]any{
				"attempt_number":  attempt.AttemptNumber,
				"error_code":      errCode,
				"next_attempt_at": retryAt,
			},
		})
		return outcomeRequeued, nil
	}

	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		if _, err := repo.TransitionStatus(ctx, job.ID, enums.JobStatusQueued, enums.JobStatusFailed,
			map[string]any{"next_attempt_at": nil, "last_error_code": errCode, "outcome_code": outcomeUndeliverable}); err != nil {
			return err
		}
		return repo.FinalizeAttempt(ctx, attempt.ID, enums.AttemptStatusFailed, nil, &errCode)
	})
	if err != nil {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exhausted job")
	}

	r.audit.Record(ctx, audit.Entry{
		EntityKind: audit.EntityOutboundJob,
		EntityID:   job.ID,
		Action:     audit.ActionJobFailed,
		Detail:     map[string]any{"attempt_number": attempt.AttemptNumber, "error_code": errCode},
	})

	emitErr := r.outbox.Emit(ctx, automation.EmitInput{
		Type:      enums.EventOutboundFailedMax,
		DedupeKey: fmt.Sprintf("outbound_failed:%s", job.ID),
		Payload: map[string]any{
			"job_id":     job.ID,
			"channel":    job.Channel,
			"error_code": errCode,
			"attempts":   job.AttemptCount,
		},
		Now: now,
	})
	if emitErr != nil {
		// The job outcome is already durable; a lost event surfaces in logs.
		r.logg.Error(ctx, "emit failure event", emitErr)
	}
	return outcomeFailed, nil
}
