package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
	"github.com/govlens-inc/govlens-engine/pkg/services/jobs"
)

// MatchJobService submits matching work asynchronously. Callers get a job
// id back immediately and poll the tracker; the worker goroutine transitions
// the job exactly once when the pipeline finishes or fails.
type MatchJobService interface {
	// SubmitRematch starts a single-record rematch and returns its job id.
	// The record's existence is checked synchronously so an unknown id is
	// a request error, not a failed job.
	SubmitRematch(ctx context.Context, stageType models.StageType, id uuid.UUID) (uuid.UUID, error)

	// SubmitBatch starts a full reconciliation pass and returns its job id.
	SubmitBatch(ctx context.Context) uuid.UUID

	// GetJob returns a snapshot of the job, or apperrors.ErrJobNotFound.
	GetJob(id uuid.UUID) (*models.MatchJob, error)
}

type matchJobService struct {
	reconciler   ReconcileService
	stageRecords repositories.StageRecordRepository
	store        jobs.Store
	timeout      time.Duration
	logger       *zap.Logger
}

// NewMatchJobService creates a new MatchJobService. timeout bounds each
// worker goroutine's run.
func NewMatchJobService(
	reconciler ReconcileService,
	stageRecords repositories.StageRecordRepository,
	store jobs.Store,
	timeout time.Duration,
	logger *zap.Logger,
) MatchJobService {
	return &matchJobService{
		reconciler:   reconciler,
		stageRecords: stageRecords,
		store:        store,
		timeout:      timeout,
		logger:       logger.Named("match_jobs"),
	}
}

var _ MatchJobService = (*matchJobService)(nil)

func (s *matchJobService) SubmitRematch(ctx context.Context, stageType models.StageType, id uuid.UUID) (uuid.UUID, error) {
	if _, err := s.stageRecords.GetByID(ctx, stageType, id); err != nil {
		return uuid.Nil, err
	}

	job := s.store.Create()

	go s.run(job.ID, func(ctx context.Context) (any, error) {
		return s.reconciler.MatchRecord(ctx, stageType, id)
	})

	return job.ID, nil
}

func (s *matchJobService) SubmitBatch(_ context.Context) uuid.UUID {
	job := s.store.Create()

	go s.run(job.ID, func(ctx context.Context) (any, error) {
		return s.reconciler.Run(ctx)
	})

	return job.ID
}

func (s *matchJobService) GetJob(id uuid.UUID) (*models.MatchJob, error) {
	return s.store.Get(id)
}

// run executes work on a background context so the job outlives the HTTP
// request that submitted it, and records the outcome exactly once.
func (s *matchJobService) run(jobID uuid.UUID, work func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := work(ctx)
	if err != nil {
		s.logger.Error("match job failed",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
		if failErr := s.store.Fail(jobID, err.Error()); failErr != nil {
			s.logger.Warn("could not record job failure",
				zap.String("job_id", jobID.String()),
				zap.Error(failErr))
		}
		return
	}

	if completeErr := s.store.Complete(jobID, result); completeErr != nil {
		s.logger.Warn("could not record job completion",
			zap.String("job_id", jobID.String()),
			zap.Error(completeErr))
	}
}
