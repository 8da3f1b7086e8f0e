package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborfin/contactdesk-backend/pkg/db/models"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	"github.com/harborfin/contactdesk-backend/pkg/pagination"
)

// Repository exposes persistence helpers for campaigns, jobs, and attempts.
// It carries no business rules; all transitions are conditional updates so
// that concurrent invocations cannot both win the same transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCampaign(ctx context.Context, campaign *models.OutboundCampaign) error
	FindCampaign(ctx context.Context, id uuid.UUID) (*models.OutboundCampaign, error)
	CreateJob(ctx context.Context, job *models.OutboundJob) error
	FindJob(ctx context.Context, id uuid.UUID) (*models.OutboundJob, error)
	FindDueJobs(ctx context.Context, now time.Time, limit int) ([]models.OutboundJob, error)
	FindAwaitingVerification(ctx context.Context, customerID uuid.UUID, channel enums.Channel, address string, limit int) ([]models.OutboundJob, error)
	FindStuckVerification(ctx context.Context, cutoff time.Time, limit int) ([]models.OutboundJob, error)
	ClaimAttempt(ctx context.Context, jobID uuid.UUID, expectedAttempts int) (bool, error)
	TransitionStatus(ctx context.Context, jobID uuid.UUID, from, to enums.JobStatus, updates map[string]any) (bool, error)
	InsertAttempt(ctx context.Context, attempt *models.OutboundAttempt) error
	FinalizeAttempt(ctx context.Context, attemptID uuid.UUID, status enums.AttemptStatus, providerMessageID, errorCode *string) error
	ListAttempts(ctx context.Context, jobID uuid.UUID) ([]models.OutboundAttempt, error)
	ListJobs(ctx context.Context, params listJobsParams) ([]models.OutboundJob, *pagination.Cursor, error)
	CountJobsWithStatus(ctx context.Context, status enums.JobStatus, updatedSince *time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an outbound repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listJobsParams struct {
	Status *enums.JobStatus
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateCampaign(ctx context.Context, campaign *models.OutboundCampaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *repositoryImpl) FindCampaign(ctx context.Context, id uuid.UUID) (*models.OutboundCampaign, error) {
	var campaign models.OutboundCampaign
	if err := r.db.WithContext(ctx).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repositoryImpl) CreateJob(ctx context.Context, job *models.OutboundJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repositoryImpl) FindJob(ctx context.Context, id uuid.UUID) (*models.OutboundJob, error) {
	var job models.OutboundJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repositoryImpl) FindDueJobs(ctx context.Context, now time.Time, limit int) ([]models.OutboundJob, error) {
	var jobs []models.OutboundJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?", enums.JobStatusQueued, now).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *repositoryImpl) FindAwaitingVerification(ctx context.Context, customerID uuid.UUID, channel enums.Channel, address string, limit int) ([]models.OutboundJob, error) {
	var jobs []models.OutboundJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND bank_customer_id = ? AND channel = ? AND target_address = ?",
			enums.JobStatusAwaitingVerification, customerID, channel, address).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *repositoryImpl) FindStuckVerification(ctx context.Context, cutoff time.Time, limit int) ([]models.OutboundJob, error) {
	var jobs []models.OutboundJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.JobStatusAwaitingVerification, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ClaimAttempt increments the attempt counter only when the persisted row
// still matches what the caller read. Losing the conditional update means
// another invocation owns the job.
func (r *repositoryImpl) ClaimAttempt(ctx context.Context, jobID uuid.UUID, expectedAttempts int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OutboundJob{}).
		Where("id = ? AND status = ? AND attempt_count = ?", jobID, enums.JobStatusQueued, expectedAttempts).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) TransitionStatus(ctx context.Context, jobID uuid.UUID, from, to enums.JobStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	result := r.db.WithContext(ctx).
		Model(&models.OutboundJob{}).
		Where("id = ? AND status = ?", jobID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) InsertAttempt(ctx context.Context, attempt *models.OutboundAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// FinalizeAttempt records the attempt outcome exactly once; the guard on
// the pending status keeps the row append-only afterwards.
func (r *repositoryImpl) FinalizeAttempt(ctx context.Context, attemptID uuid.UUID, status enums.AttemptStatus, providerMessageID, errorCode *string) error {
	updates := map[string]any{"status": status}
	if providerMessageID != nil {
		updates["provider_message_id"] = *providerMessageID
	}
	if errorCode != nil {
		updates["error_code"] = *errorCode
	}
	return r.db.WithContext(ctx).
		Model(&models.OutboundAttempt{}).
		Where("id = ? AND status = ?", attemptID, enums.AttemptStatusPending).
		Updates(updates).Error
}

func (r *repositoryImpl) ListAttempts(ctx context.Context, jobID uuid.UUID) ([]models.OutboundAttempt, error) {
	var attempts []models.OutboundAttempt
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *repositoryImpl) ListJobs(ctx context.Context, params listJobsParams) ([]models.OutboundJob, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.OutboundJob{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var jobs []models.OutboundJob
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, nil, err
	}

	if len(jobs) > normalized {
		next := jobs[normalized]
		jobs = jobs[:normalized]
		return jobs, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return jobs, nil, nil
}

func (r *repositoryImpl) CountJobsWithStatus(ctx context.Context, status enums.JobStatus, updatedSince *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OutboundJob{}).
		Where("status = ?", status)
	if updatedSince != nil {
		query = query.Where("updated_at >= ?", *updatedSince)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
