package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, limit int, now time.Time) (automation.DispatchSummary, error)
}

// EventDispatchJobParams configure the periodic event drain.
type EventDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher eventDispatcher
	Limit      int
}

func NewEventDispatchJob(params EventDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &eventDispatchJob{
		logg:       params.Logger,
		dispatcher: params.Dispatcher,
		limit:      params.Limit,
		now:        time.Now,
	}, nil
}

type eventDispatchJob struct {
	logg       *logger.Logger
	dispatcher eventDispatcher
	limit      int
	now        func() time.Time
}

func (j *eventDispatchJob) Name() string { return "event-dispatch" }

func (j *eventDispatchJob) Run(ctx context.Context) error {
	summary, err := j.dispatcher.Dispatch(ctx, j.limit, j.now().UTC())
	if err != nil {
		return fmt.Errorf("event dispatch: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"processed":   summary.Processed,
		"dispatched":  summary.Dispatched,
		"rescheduled": summary.Rescheduled,
		"failed":      summary.Failed,
	}), "event dispatch complete")
	return nil
}
