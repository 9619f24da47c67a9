package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
)

// mockStageRecordRepo implements repositories.StageRecordRepository with
// overridable function fields. Unset lookups report not found.
type mockStageRecordRepo struct {
	GetByIDFunc         func(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.StageRecord, error)
	ListUnmatchedFunc   func(ctx context.Context, stageType models.StageType) ([]*models.StageRecord, error)
	GetByNaturalKeyFunc func(ctx context.Context, stageType models.StageType, key string) (*models.StageRecord, error)
	GetByProposalIDFunc func(ctx context.Context, stageType models.StageType, proposalID uuid.UUID) (*models.StageRecord, error)
	GetByURLFunc        func(ctx context.Context, stageType models.StageType, url string) (*models.StageRecord, error)
	SetProposalIDFunc   func(ctx context.Context, stageType models.StageType, id, proposalID uuid.UUID) error

	setProposalCalls []uuid.UUID
}

var _ repositories.StageRecordRepository = (*mockStageRecordRepo)(nil)

func (m *mockStageRecordRepo) GetByID(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.StageRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, stageType, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStageRecordRepo) ListUnmatched(ctx context.Context, stageType models.StageType) ([]*models.StageRecord, error) {
	if m.ListUnmatchedFunc != nil {
		return m.ListUnmatchedFunc(ctx, stageType)
	}
	return nil, nil
}

func (m *mockStageRecordRepo) GetByNaturalKey(ctx context.Context, stageType models.StageType, key string) (*models.StageRecord, error) {
	if m.GetByNaturalKeyFunc != nil {
		return m.GetByNaturalKeyFunc(ctx, stageType, key)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStageRecordRepo) GetByProposalID(ctx context.Context, stageType models.StageType, proposalID uuid.UUID) (*models.StageRecord, error) {
	if m.GetByProposalIDFunc != nil {
		return m.GetByProposalIDFunc(ctx, stageType, proposalID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStageRecordRepo) GetByURL(ctx context.Context, stageType models.StageType, url string) (*models.StageRecord, error) {
	if m.GetByURLFunc != nil {
		return m.GetByURLFunc(ctx, stageType, url)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStageRecordRepo) SetProposalID(ctx context.Context, stageType models.StageType, id, proposalID uuid.UUID) error {
	m.setProposalCalls = append(m.setProposalCalls, id)
	if m.SetProposalIDFunc != nil {
		return m.SetProposalIDFunc(ctx, stageType, id, proposalID)
	}
	return nil
}

type mockProposalRepo struct {
	CreateFunc  func(ctx context.Context, title string, authorName, category *string) (*models.Proposal, error)
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListFunc    func(ctx context.Context) ([]*models.Proposal, error)
}

var _ repositories.ProposalRepository = (*mockProposalRepo)(nil)

func (m *mockProposalRepo) Create(ctx context.Context, title string, authorName, category *string) (*models.Proposal, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, title, authorName, category)
	}
	return &models.Proposal{ID: uuid.New(), Title: title, AuthorName: authorName, Category: category}, nil
}

func (m *mockProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockProposalRepo) List(ctx context.Context) ([]*models.Proposal, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// mockMatchingResultRepo records every upserted row.
type mockMatchingResultRepo struct {
	UpsertFunc func(ctx context.Context, result *models.MatchingResult) error

	upserted []*models.MatchingResult
}

var _ repositories.MatchingResultRepository = (*mockMatchingResultRepo)(nil)

func (m *mockMatchingResultRepo) Upsert(ctx context.Context, result *models.MatchingResult) error {
	m.upserted = append(m.upserted, result)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, result)
	}
	return nil
}

func (m *mockMatchingResultRepo) List(ctx context.Context, filter repositories.MatchingResultFilter) ([]*models.MatchingResult, error) {
	return m.upserted, nil
}

func (m *mockMatchingResultRepo) Summary(ctx context.Context) ([]*models.MatchingSummaryRow, error) {
	return nil, nil
}

type mockDeterministic struct {
	MatchFunc func(ctx context.Context, record *models.StageRecord) (*MatchDecision, error)
}

var _ DeterministicMatchService = (*mockDeterministic)(nil)

func (m *mockDeterministic) Match(ctx context.Context, record *models.StageRecord) (*MatchDecision, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, record)
	}
	return nil, nil
}

type mockFuzzy struct {
	MatchFunc func(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error)
}

var _ FuzzyMatchService = (*mockFuzzy)(nil)

func (m *mockFuzzy) Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, record, candidates)
	}
	return noMatchDecision(record, models.MethodFuzzyTitle, "mock"), nil
}

type mockClassifierService struct {
	MatchFunc func(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error)
}

var _ ClassifierService = (*mockClassifierService)(nil)

func (m *mockClassifierService) Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, record, candidates)
	}
	return noMatchDecision(record, models.MethodClassifier, "mock"), nil
}

type mockApplier struct {
	ApplyFunc func(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error)

	applied []*MatchDecision
}

var _ MatchApplier = (*mockApplier)(nil)

func (m *mockApplier) Apply(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error) {
	m.applied = append(m.applied, decision)
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, decision)
	}
	return decision.Result(), nil
}

type mockReconciler struct {
	RunFunc         func(ctx context.Context) (*BatchReport, error)
	MatchRecordFunc func(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.MatchingResult, error)
}

var _ ReconcileService = (*mockReconciler)(nil)

func (m *mockReconciler) Run(ctx context.Context) (*BatchReport, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return &BatchReport{}, nil
}

func (m *mockReconciler) MatchRecord(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.MatchingResult, error) {
	if m.MatchRecordFunc != nil {
		return m.MatchRecordFunc(ctx, stageType, id)
	}
	return &models.MatchingResult{StageType: stageType, StageID: id, Status: models.MatchStatusNoMatch}, nil
}
