package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

const summaryWindow = 24 * time.Hour

type jobCounter interface {
	CountJobsWithStatus(ctx context.Context, status enums.JobStatus, updatedSince *time.Time) (int64, error)
}

type eventCounter interface {
	CountEventsByTypeSince(ctx context.Context, eventType enums.AutomationEventType, since time.Time) (int64, error)
	CountOpenInboxItems(ctx context.Context) (int64, error)
}

// DailySummaryJobParams configure the daily operations digest.
type DailySummaryJobParams struct {
	Logger *logger.Logger
	Jobs   jobCounter
	Events eventCounter
	Outbox eventEmitter
}

// DailySummary holds the prior-24h counts that make up the digest.
type DailySummary struct {
	Date           string
	FraudCases     int64
	OutboundQueued int64
	OutboundFailed int64
	OpenInboxItems int64
	Emitted        bool
}

func NewDailySummaryJob(params DailySummaryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Jobs == nil {
		return nil, fmt.Errorf("job counter required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event counter required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	return &dailySummaryJob{
		logg:   params.Logger,
		jobs:   params.Jobs,
		events: params.Events,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type dailySummaryJob struct {
	logg   *logger.Logger
	jobs   jobCounter
	events eventCounter
	outbox eventEmitter
	now    func() time.Time
}

func (j *dailySummaryJob) Name() string { return "daily-summary" }

// Run never returns an error; the dedupe key on the emitted event caps the
// digest at one per calendar date no matter how often the job fires.
func (j *dailySummaryJob) Run(ctx context.Context) error {
	summary := j.check(ctx, j.now().UTC())
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"date":    summary.Date,
		"emitted": summary.Emitted,
	}), "daily summary pass complete")
	return nil
}

func (j *dailySummaryJob) check(ctx context.Context, now time.Time) DailySummary {
	date := now.Format("2006-01-02")
	since := now.Add(-summaryWindow)
	summary := DailySummary{Date: date}

	fraudCases, err := j.events.CountEventsByTypeSince(ctx, enums.EventFraudCaseCreated, since)
	if err != nil {
		j.logg.Error(ctx, "count fraud case events", err)
		return DailySummary{Date: date}
	}
	queued, err := j.jobs.CountJobsWithStatus(ctx, enums.JobStatusQueued, nil)
	if err != nil {
		j.logg.Error(ctx, "count queued jobs", err)
		return DailySummary{Date: date}
	}
	failed, err := j.jobs.CountJobsWithStatus(ctx, enums.JobStatusFailed, &since)
	if err != nil {
		j.logg.Error(ctx, "count failed jobs", err)
		return DailySummary{Date: date}
	}
	openItems, err := j.events.CountOpenInboxItems(ctx)
	if err != nil {
		j.logg.Error(ctx, "count open inbox items", err)
		return DailySummary{Date: date}
	}

	summary.FraudCases = fraudCases
	summary.OutboundQueued = queued
	summary.OutboundFailed = failed
	summary.OpenInboxItems = openItems

	err = j.outbox.Emit(ctx, automation.EmitInput{
		Type:      enums.EventDailySummaryReady,
		DedupeKey: fmt.Sprintf("daily_summary:%s", date),
		Payload: map[string]any{
			"date":             date,
			"fraud_cases":      fraudCases,
			"outbound_queued":  queued,
			"outbound_failed":  failed,
			"open_inbox_items": openItems,
		},
		Now: now,
	})
	if err != nil {
		j.logg.Error(ctx, "emit daily summary event", err)
		return summary
	}
	summary.Emitted = true
	return summary
}
