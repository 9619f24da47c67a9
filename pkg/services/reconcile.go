package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
)

// BatchError is one record's failure inside an otherwise-continuing batch.
type BatchError struct {
	StageType models.StageType `json:"stage_type"`
	StageID   uuid.UUID        `json:"stage_id"`
	Message   string           `json:"message"`
}

// BatchReport summarizes a full reconciliation pass.
type BatchReport struct {
	Processed     int          `json:"processed"`
	Matched       int          `json:"matched"`
	PendingReview int          `json:"pending_review"`
	NoMatch       int          `json:"no_match"`
	Errors        []BatchError `json:"errors,omitempty"`
}

// ReconcileService runs the matching pipeline: deterministic structural
// evidence first, then title matching (or the classifier when one is
// configured), each decision committed through the applier.
type ReconcileService interface {
	// Run processes every unmatched record of every stage type serially.
	// Individual record failures are accumulated in the report; only an
	// empty candidate pool aborts the pass.
	Run(ctx context.Context) (*BatchReport, error)

	// MatchRecord reruns the pipeline for a single record. Same fatal
	// precondition as Run.
	MatchRecord(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.MatchingResult, error)
}

type reconcileService struct {
	stageRecords  repositories.StageRecordRepository
	proposals     repositories.ProposalRepository
	deterministic DeterministicMatchService
	fuzzy         FuzzyMatchService
	classifier    ClassifierService // nil unless configured
	applier       MatchApplier
	logger        *zap.Logger
}

// NewReconcileService creates a new ReconcileService. classifier may be nil,
// in which case title matching falls to the fuzzy service.
func NewReconcileService(
	stageRecords repositories.StageRecordRepository,
	proposals repositories.ProposalRepository,
	deterministic DeterministicMatchService,
	fuzzy FuzzyMatchService,
	classifier ClassifierService,
	applier MatchApplier,
	logger *zap.Logger,
) ReconcileService {
	return &reconcileService{
		stageRecords:  stageRecords,
		proposals:     proposals,
		deterministic: deterministic,
		fuzzy:         fuzzy,
		classifier:    classifier,
		applier:       applier,
		logger:        logger.Named("reconcile"),
	}
}

var _ ReconcileService = (*reconcileService)(nil)

// batchOrder processes later stages first: their records carry the backward
// references the deterministic strategy feeds on.
var batchOrder = []models.StageType{models.StageTally, models.StageSnapshot, models.StageForum}

func (s *reconcileService) Run(ctx context.Context) (*BatchReport, error) {
	candidates, err := s.candidatePool(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, stageType := range batchOrder {
		records, err := s.stageRecords.ListUnmatched(ctx, stageType)
		if err != nil {
			return nil, err
		}

		for _, record := range records {
			result, err := s.matchOne(ctx, record, candidates)
			if err != nil {
				report.Errors = append(report.Errors, BatchError{
					StageType: record.Type,
					StageID:   record.ID,
					Message:   err.Error(),
				})
				s.logger.Error("record failed during batch pass",
					zap.String("stage_type", string(record.Type)),
					zap.String("stage_id", record.ID.String()),
					zap.Error(err))
				continue
			}

			report.Processed++
			switch result.Status {
			case models.MatchStatusMatched:
				report.Matched++
			case models.MatchStatusPendingReview:
				report.PendingReview++
			case models.MatchStatusNoMatch:
				report.NoMatch++
			}
		}
	}

	s.logger.Info("batch pass finished",
		zap.Int("processed", report.Processed),
		zap.Int("matched", report.Matched),
		zap.Int("pending_review", report.PendingReview),
		zap.Int("no_match", report.NoMatch),
		zap.Int("errors", len(report.Errors)))

	return report, nil
}

func (s *reconcileService) MatchRecord(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.MatchingResult, error) {
	record, err := s.stageRecords.GetByID(ctx, stageType, id)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidatePool(ctx)
	if err != nil {
		return nil, err
	}

	return s.matchOne(ctx, record, candidates)
}

func (s *reconcileService) matchOne(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*models.MatchingResult, error) {
	decision, err := s.deterministic.Match(ctx, record)
	if err != nil {
		return nil, err
	}

	if decision != nil && decision.OrphanWith != nil {
		decision, err = s.resolveOrphanPair(ctx, decision, candidates)
		if err != nil {
			return nil, err
		}
	}

	if decision == nil {
		if s.classifier != nil {
			decision, err = s.classifier.Match(ctx, record, candidates)
		} else {
			decision, err = s.fuzzy.Match(ctx, record, candidates)
		}
		if err != nil {
			return nil, err
		}
	}

	return s.applier.Apply(ctx, decision)
}

// resolveOrphanPair guards proposal creation for a mutually cross-referenced
// pair: a new proposal is minted only when neither side's title resolves to
// an existing one. When a title does clear its accept threshold, the record
// adopts that proposal instead.
func (s *reconcileService) resolveOrphanPair(ctx context.Context, decision *MatchDecision, candidates []*models.Proposal) (*MatchDecision, error) {
	record := decision.Record
	sibling := decision.OrphanWith

	for _, rec := range []*models.StageRecord{record, sibling} {
		resolved, err := s.fuzzy.Match(ctx, rec, candidates)
		if err != nil {
			return nil, err
		}
		if resolved.Status != models.MatchStatusMatched || resolved.ProposalID == nil {
			continue
		}
		if rec == record {
			return resolved, nil
		}

		// The sibling's title resolved; the cross-reference carries its
		// proposal over to this record.
		proposalID := *resolved.ProposalID
		return &MatchDecision{
			Record:     record,
			ProposalID: &proposalID,
			Status:     models.MatchStatusMatched,
			Method:     resolved.Method,
			Confidence: resolved.Confidence,
			Reasoning: fmt.Sprintf("cross-referenced %s record %s resolved by title to proposal %s",
				sibling.Type, sibling.ID, proposalID),
			MatchedURL: decision.MatchedURL,
		}, nil
	}

	return decision, nil
}

func (s *reconcileService) candidatePool(ctx context.Context) ([]*models.Proposal, error) {
	candidates, err := s.proposals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.ErrNoCandidates
	}
	return candidates, nil
}
