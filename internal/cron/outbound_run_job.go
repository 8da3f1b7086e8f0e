package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

type outboundRunner interface {
	Run(ctx context.Context, limit int, now time.Time) (outbound.RunSummary, error)
}

// OutboundRunJobParams configure the periodic delivery sweep.
type OutboundRunJobParams struct {
	Logger *logger.Logger
	Runner outboundRunner
	Limit  int
}

func NewOutboundRunJob(params OutboundRunJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("runner required")
	}
	return &outboundRunJob{
		logg:   params.Logger,
		runner: params.Runner,
		limit:  params.Limit,
		now:    time.Now,
	}, nil
}

type outboundRunJob struct {
	logg   *logger.Logger
	runner outboundRunner
	limit  int
	now    func() time.Time
}

func (j *outboundRunJob) Name() string { return "outbound-runner" }

func (j *outboundRunJob) Run(ctx context.Context) error {
	summary, err := j.runner.Run(ctx, j.limit, j.now().UTC())
	if err != nil {
		return fmt.Errorf("outbound run: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"processed":             summary.Processed,
		"sent":                  summary.Sent,
		"failed":                summary.Failed,
		"awaiting_verification": summary.AwaitingVerification,
	}), "outbound sweep complete")
	return nil
}
