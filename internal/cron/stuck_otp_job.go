package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

const (
	defaultStuckThreshold = 30 * time.Minute
	stuckScanLimit        = 100
)

type stuckJobReader interface {
	FindStuckVerification(ctx context.Context, cutoff time.Time, limit int) ([]models.OutboundJob, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, in automation.EmitInput) error
}

// StuckOTPJobParams configure the stalled-verification checker.
type StuckOTPJobParams struct {
	Logger    *logger.Logger
	Reader    stuckJobReader
	Outbox    eventEmitter
	Threshold time.Duration
}

// StuckOTPSummary reports one checker pass.
type StuckOTPSummary struct {
	Scanned int
	Emitted int
}

func NewStuckOTPJob(params StuckOTPJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("job reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultStuckThreshold
	}
	return &stuckOTPJob{
		logg:      params.Logger,
		reader:    params.Reader,
		outbox:    params.Outbox,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

type stuckOTPJob struct {
	logg      *logger.Logger
	reader    stuckJobReader
	outbox    eventEmitter
	threshold time.Duration
	now       func() time.Time
}

func (j *stuckOTPJob) Name() string { return "stuck-otp-checker" }

// Run never returns an error: a broken query yields a zero-result pass so
// the rest of the worker cycle still runs.
func (j *stuckOTPJob) Run(ctx context.Context) error {
	summary := j.check(ctx, j.now().UTC())
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned": summary.Scanned,
		"emitted": summary.Emitted,
	}), "stuck verification sweep complete")
	return nil
}

func (j *stuckOTPJob) check(ctx context.Context, now time.Time) StuckOTPSummary {
	cutoff := now.Add(-j.threshold)
	jobs, err := j.reader.FindStuckVerification(ctx, cutoff, stuckScanLimit)
	if err != nil {
		j.logg.Error(ctx, "scan stalled verifications", err)
		return StuckOTPSummary{}
	}

	summary := StuckOTPSummary{Scanned: len(jobs)}
	for i := range jobs {
		job := &jobs[i]
		err := j.outbox.Emit(ctx, automation.EmitInput{
			Type:      enums.EventOTPVerificationStuck,
			DedupeKey: fmt.Sprintf("otp_stuck:%s", job.ID),
			Payload: map[string]any{
				"job_id":        job.ID,
				"channel":       job.Channel,
				"waiting_since": job.UpdatedAt,
			},
			Now: now,
		})
		if err != nil {
			j.logg.Error(j.logg.WithJobID(ctx, job.ID.String()), "emit stuck verification event", err)
			continue
		}
		summary.Emitted++
	}
	return summary
}
