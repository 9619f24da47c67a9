// Package jobs tracks asynchronous matching jobs for polling callers.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// DefaultRetention is how long jobs are kept before lazy purge, regardless
// of terminal state.
const DefaultRetention = time.Hour

// Store is the job registry. Create issues an id synchronously; the
// executing worker transitions the job exactly once via Complete or Fail;
// pollers read snapshots via Get. Implementations must be safe under
// concurrent creation, completion and polling.
type Store interface {
	// Create registers a new running job and returns its snapshot.
	Create() *models.MatchJob

	// Get returns a snapshot of the job, or apperrors.ErrJobNotFound.
	// An unknown id is a distinct outcome from a still-running job.
	Get(id uuid.UUID) (*models.MatchJob, error)

	// Complete transitions running -> completed with a result payload.
	Complete(id uuid.UUID, result any) error

	// Fail transitions running -> error with a message.
	Fail(id uuid.UUID, message string) error

	// Purge drops jobs older than the given age and reports how many were
	// removed. Create calls this lazily with the configured retention.
	Purge(olderThan time.Duration) int
}

type memoryStore struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*models.MatchJob
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates an in-process Store. Jobs older than retention are
// purged lazily on the next Create. A retention <= 0 uses DefaultRetention.
func NewMemoryStore(retention time.Duration) Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &memoryStore{
		jobs:      make(map[uuid.UUID]*models.MatchJob),
		retention: retention,
		now:       time.Now,
	}
}

var _ Store = (*memoryStore)(nil)

func (s *memoryStore) Create() *models.MatchJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(s.retention)

	job := &models.MatchJob{
		ID:        uuid.New(),
		Status:    models.JobStatusRunning,
		CreatedAt: s.now(),
	}
	s.jobs[job.ID] = job

	return snapshot(job)
}

func (s *memoryStore) Get(id uuid.UUID) (*models.MatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	return snapshot(job), nil
}

func (s *memoryStore) Complete(id uuid.UUID, result any) error {
	return s.finish(id, models.JobStatusCompleted, result, "")
}

func (s *memoryStore) Fail(id uuid.UUID, message string) error {
	return s.finish(id, models.JobStatusError, nil, message)
}

func (s *memoryStore) finish(id uuid.UUID, status models.JobStatus, result any, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperrors.ErrJobNotFound
	}
	if job.Status != models.JobStatusRunning {
		return apperrors.ErrConflict
	}

	now := s.now()
	job.Status = status
	job.Result = result
	job.Error = message
	job.CompletedAt = &now

	return nil
}

func (s *memoryStore) Purge(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(olderThan)
}

// purgeLocked drops jobs older than the given age. Terminal state is
// irrelevant: an abandoned running job is purged the same as a completed one.
func (s *memoryStore) purgeLocked(olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)
	purged := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged
}

func snapshot(job *models.MatchJob) *models.MatchJob {
	copied := *job
	return &copied
}
