package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/pkg/addressing"
	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	dbtypes "github.com/harborfin/contactdesk-backend/pkg/db/types"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/pagination"
	"github.com/harborfin/contactdesk-backend/pkg/redaction"
)

const (
	maxAttemptsCeiling = 10
	auditTailLimit     = 20
)

// CampaignSpec describes a campaign created inline with a submission.
type CampaignSpec struct {
	Name            string
	Purpose         enums.CampaignPurpose
	AllowedChannels []enums.Channel
}

// SubmitInput carries one job submission. Exactly one of CampaignID or
// Campaign must be set.
type SubmitInput struct {
	CampaignID     *uuid.UUID
	Campaign       *CampaignSpec
	BankCustomerID *uuid.UUID
	Channel        enums.Channel
	TargetAddress  string
	Payload        json.RawMessage
	ScheduledAt    *time.Time
	MaxAttempts    *int
}

// CancelInput carries the operator's stated reason.
type CancelInput struct {
	ReasonCode    string
	ReasonMessage string
}

// ListParams filters and paginates the job listing.
type ListParams struct {
	Status *enums.JobStatus
	Limit  int
	Cursor string
}

// JobSummary is the listing view of a job; the raw address never leaves
// the store, only its masked hint.
type JobSummary struct {
	ID            uuid.UUID       `json:"id"`
	CampaignID    uuid.UUID       `json:"campaignId"`
	Channel       enums.Channel   `json:"channel"`
	AddressHint   string          `json:"addressHint"`
	Status        enums.JobStatus `json:"status"`
	AttemptCount  int             `json:"attemptCount"`
	MaxAttempts   int             `json:"maxAttempts"`
	ScheduledAt   time.Time       `json:"scheduledAt"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty"`
	LastErrorCode *string         `json:"lastErrorCode,omitempty"`
	OutcomeCode   *string         `json:"outcomeCode,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ListResult is one page of the job listing.
type ListResult struct {
	Items      []JobSummary `json:"items"`
	NextCursor *string      `json:"nextCursor,omitempty"`
}

// DetailResult is the full operator view of one job.
type DetailResult struct {
	Job         models.OutboundJob       `json:"job"`
	AddressHint string                   `json:"addressHint"`
	Attempts    []models.OutboundAttempt `json:"attempts"`
	Audit       []models.AuditLog        `json:"audit"`
}

// Service is the submission-side API for outbound jobs.
type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*models.OutboundJob, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Detail(ctx context.Context, jobID uuid.UUID) (*DetailResult, error)
	Cancel(ctx context.Context, jobID uuid.UUID, in CancelInput) (*models.OutboundJob, error)
}

// auditTrail is the read-write slice of the audit writer the service needs.
type auditTrail interface {
	Record(ctx context.Context, entry audit.Entry)
	Tail(ctx context.Context, entityKind string, entityID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type service struct {
	logg  *logger.Logger
	db    txRunner
	repo  Repository
	audit auditTrail
	now   func() time.Time
}

// NewService builds the outbound job service.
func NewService(logg *logger.Logger, db txRunner, repo Repository, auditW auditTrail) Service {
	return &service{
		logg:  logg,
		db:    db,
		repo:  repo,
		audit: auditW,
		now:   time.Now,
	}
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*models.OutboundJob, error) {
	if !in.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown or missing channel")
	}
	address, err := addressing.Normalize(in.Channel, in.TargetAddress)
	if err != nil {
		return nil, err
	}

	maxAttempts := in.Channel.DefaultMaxAttempts()
	if in.MaxAttempts != nil {
		if *in.MaxAttempts < 1 || *in.MaxAttempts > maxAttemptsCeiling {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "maxAttempts out of range")
		}
		maxAttempts = *in.MaxAttempts
	}

	now := s.now().UTC()
	scheduledAt := now
	if in.ScheduledAt != nil {
		scheduledAt = in.ScheduledAt.UTC()
	}

	var campaign *models.OutboundCampaign
	var createCampaign bool
	switch {
	case in.CampaignID != nil:
		campaign, err = s.repo.FindCampaign(ctx, *in.CampaignID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
		}
	case in.Campaign != nil:
		campaign, err = buildCampaign(*in.Campaign)
		if err != nil {
			return nil, err
		}
		createCampaign = true
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaignId or campaign is required")
	}

	if !campaign.AllowedChannels.Contains(in.Channel) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel not allowed for campaign")
	}

	due := scheduledAt
	job := &models.OutboundJob{
		BankCustomerID: in.BankCustomerID,
		Channel:        in.Channel,
		TargetAddress:  address,
		Payload:        redaction.Redact(in.Payload),
		Status:         enums.JobStatusQueued,
		ScheduledAt:    scheduledAt,
		NextAttemptAt:  &due,
		MaxAttempts:    maxAttempts,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if createCampaign {
			if err := repo.CreateCampaign(ctx, campaign); err != nil {
				return err
			}
		}
		job.CampaignID = campaign.ID
		return repo.CreateJob(ctx, job)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist submission")
	}

	s.audit.Record(ctx, audit.Entry{
		EntityKind: audit.EntityOutboundJob,
		EntityID:   job.ID,
		Action:     audit.ActionJobSubmitted,
		Detail: map[string]any{
			"campaign_id":  campaign.ID,
			"channel":      job.Channel,
			"scheduled_at": job.ScheduledAt,
		},
	})
	s.logg.Info(s.logg.WithJobID(ctx, job.ID.String()), "outbound job submitted")
	return job, nil
}

func buildCampaign(spec CampaignSpec) (*models.OutboundCampaign, error) {
	if spec.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	}
	if !spec.Purpose.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown campaign purpose")
	}
	if len(spec.AllowedChannels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign needs at least one allowed channel")
	}
	channels := make(dbtypes.ChannelList, 0, len(spec.AllowedChannels))
	for _, ch := range spec.AllowedChannels {
		if !ch.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown channel in allowedChannels")
		}
		channels = append(channels, ch)
	}
	return &models.OutboundCampaign{
		Name:            spec.Name,
		Purpose:         spec.Purpose,
		AllowedChannels: channels,
		Status:          enums.CampaignStatusActive,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	jobs, next, err := s.repo.ListJobs(ctx, listJobsParams{
		Status: params.Status,
		Limit:  params.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}

	items := make([]JobSummary, 0, len(jobs))
	for i := range jobs {
		items = append(items, summarize(&jobs[i]))
	}
	result := &ListResult{Items: items}
	if next != nil {
		encoded := pagination.EncodeCursor(*next)
		result.NextCursor = &encoded
	}
	return result, nil
}

func summarize(job *models.OutboundJob) JobSummary {
	return JobSummary{
		ID:            job.ID,
		CampaignID:    job.CampaignID,
		Channel:       job.Channel,
		AddressHint:   addressing.Hint(job.Channel, job.TargetAddress),
		Status:        job.Status,
		AttemptCount:  job.AttemptCount,
		MaxAttempts:   job.MaxAttempts,
		ScheduledAt:   job.ScheduledAt,
		NextAttemptAt: job.NextAttemptAt,
		LastErrorCode: job.LastErrorCode,
		OutcomeCode:   job.OutcomeCode,
		CreatedAt:     job.CreatedAt,
	}
}

func (s *service) Detail(ctx context.Context, jobID uuid.UUID) (*DetailResult, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.repo.ListAttempts(ctx, jobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attempts")
	}
	trail, err := s.audit.Tail(ctx, audit.EntityOutboundJob, jobID, auditTailLimit)
	if err != nil {
		s.logg.Error(ctx, "load audit tail", err)
		trail = nil
	}
	return &DetailResult{
		Job:         *job,
		AddressHint: addressing.Hint(job.Channel, job.TargetAddress),
		Attempts:    attempts,
		Audit:       trail,
	}, nil
}

// Cancel moves a non-terminal job to cancelled. Cancelling a job that is
// already terminal is a no-op returning the current state.
func (s *service) Cancel(ctx context.Context, jobID uuid.UUID, in CancelInput) (*models.OutboundJob, error) {
	if in.ReasonCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reasonCode is required")
	}

	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	updates := map[string]any{
		"next_attempt_at":       nil,
		"cancel_reason_code":    in.ReasonCode,
		"cancel_reason_message": in.ReasonMessage,
		"outcome_code":          "cancelled",
	}
	ok, err := s.repo.TransitionStatus(ctx, jobID, job.Status, enums.JobStatusCancelled, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel job")
	}
	if ok {
		s.audit.Record(ctx, audit.Entry{
			EntityKind: audit.EntityOutboundJob,
			EntityID:   jobID,
			Action:     audit.ActionJobCancelled,
			Detail:     map[string]any{"reason_code": in.ReasonCode},
		})
		return s.findJob(ctx, jobID)
	}

	// The job moved while we looked at it. A terminal landing spot makes
	// the cancel a no-op; anything else is a live race the caller retries.
	job, err = s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job changed state during cancellation")
}

func (s *service) findJob(ctx context.Context, jobID uuid.UUID) (*models.OutboundJob, error) {
	job, err := s.repo.FindJob(ctx, jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}
