package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/matching"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
)

// MatchApplier is the single commit path for match decisions. It re-checks
// the one-record-per-stage-type invariant at commit time, downgrades
// conflicting decisions to recorded skips, and writes the audit row. Every
// strategy and the bulk importer go through it; nothing else links records.
type MatchApplier interface {
	Apply(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error)
}

type matchApplier struct {
	stageRecords    repositories.StageRecordRepository
	proposals       repositories.ProposalRepository
	matchingResults repositories.MatchingResultRepository
	logger          *zap.Logger
}

// NewMatchApplier creates a new MatchApplier.
func NewMatchApplier(
	stageRecords repositories.StageRecordRepository,
	proposals repositories.ProposalRepository,
	matchingResults repositories.MatchingResultRepository,
	logger *zap.Logger,
) MatchApplier {
	return &matchApplier{
		stageRecords:    stageRecords,
		proposals:       proposals,
		matchingResults: matchingResults,
		logger:          logger.Named("match_applier"),
	}
}

var _ MatchApplier = (*matchApplier)(nil)

func (a *matchApplier) Apply(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error) {
	if decision.OrphanWith != nil {
		return a.applyOrphan(ctx, decision)
	}
	if decision.Status == models.MatchStatusMatched && decision.ProposalID != nil {
		return a.applyLink(ctx, decision)
	}

	// pending_review and no_match only record the verdict; the stage
	// record is untouched.
	result := decision.Result()
	if err := a.matchingResults.Upsert(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *matchApplier) applyLink(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error) {
	record := decision.Record
	proposalID := *decision.ProposalID

	// Commit-time re-check: the pool may have changed since the strategy
	// scored its candidates.
	holder, err := a.stageRecords.GetByProposalID(ctx, record.Type, proposalID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to re-check proposal %s: %w", proposalID, err)
	}
	if holder != nil && holder.ID != record.ID {
		return a.recordConflict(ctx, decision, proposalID, holder)
	}

	err = a.stageRecords.SetProposalID(ctx, record.Type, record.ID, proposalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// The record picked up a link between read and commit. Keep
			// whatever is there; record the skip.
			return a.recordConflict(ctx, decision, proposalID, record)
		}
		return nil, err
	}

	result := decision.Result()
	if err := a.matchingResults.Upsert(ctx, result); err != nil {
		return nil, err
	}

	a.logger.Info("linked stage record to proposal",
		zap.String("stage_type", string(record.Type)),
		zap.String("stage_id", record.ID.String()),
		zap.String("proposal_id", proposalID.String()),
		zap.String("method", string(decision.Method)),
		zap.Int("confidence", decision.Confidence))

	return result, nil
}

// applyOrphan mints a proposal for a mutually cross-referenced pair that no
// pipeline has a canonical proposal for, and links both records to it. Both
// sides are re-read at commit time; a side that picked up a link in the
// meantime turns the decision into a recorded skip before anything is
// created.
func (a *matchApplier) applyOrphan(ctx context.Context, decision *MatchDecision) (*models.MatchingResult, error) {
	record := decision.Record
	sibling := decision.OrphanWith

	for _, rec := range []*models.StageRecord{record, sibling} {
		fresh, err := a.stageRecords.GetByID(ctx, rec.Type, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read %s record %s: %w", rec.Type, rec.ID, err)
		}
		if fresh.IsMatched() {
			return a.recordConflict(ctx, decision, *fresh.ProposalID, fresh)
		}
	}

	title, author := firstNonEmpty(record, sibling)
	proposal, err := a.proposals.Create(ctx, title, author, nil)
	if err != nil {
		return nil, err
	}

	if err := a.stageRecords.SetProposalID(ctx, record.Type, record.ID, proposal.ID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return a.recordConflict(ctx, decision, proposal.ID, record)
		}
		return nil, fmt.Errorf("failed to link %s record %s to new proposal: %w", record.Type, record.ID, err)
	}

	siblingLinked := true
	if err := a.stageRecords.SetProposalID(ctx, sibling.Type, sibling.ID, proposal.ID); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("failed to link %s record %s to new proposal: %w", sibling.Type, sibling.ID, err)
		}
		// The sibling was linked concurrently after the re-read. The
		// record keeps the new proposal; the sibling keeps whatever won.
		siblingLinked = false
		a.logger.Warn("orphan sibling linked concurrently",
			zap.String("stage_type", string(sibling.Type)),
			zap.String("stage_id", sibling.ID.String()),
			zap.String("proposal_id", proposal.ID.String()))
	}

	a.logger.Info("created proposal for cross-referenced pair",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("stage_type", string(record.Type)),
		zap.String("stage_id", record.ID.String()),
		zap.String("sibling_type", string(sibling.Type)),
		zap.String("sibling_id", sibling.ID.String()))

	result := orphanResultRow(record, proposal.ID, decision)
	if err := a.matchingResults.Upsert(ctx, result); err != nil {
		return nil, err
	}

	siblingRow := orphanResultRow(sibling, proposal.ID, decision)
	if !siblingLinked {
		zero := 0
		siblingRow.ProposalID = nil
		siblingRow.Status = models.MatchStatusNoMatch
		siblingRow.Confidence = &zero
		siblingRow.Reasoning = fmt.Sprintf("linked concurrently while proposal %s was being created; kept existing link", proposal.ID)
	}
	if err := a.matchingResults.Upsert(ctx, siblingRow); err != nil {
		return nil, err
	}

	return result, nil
}

func orphanResultRow(rec *models.StageRecord, proposalID uuid.UUID, decision *MatchDecision) *models.MatchingResult {
	confidence := matching.Score(models.MethodDeterministicURL, 0, false)
	id := proposalID
	return &models.MatchingResult{
		StageType:   rec.Type,
		StageID:     rec.ID,
		ProposalID:  &id,
		Status:      models.MatchStatusMatched,
		Method:      models.MethodDeterministicURL,
		Confidence:  &confidence,
		Reasoning:   decision.Reasoning,
		SourceTitle: rec.Title,
		SourceURL:   rec.URL,
		MatchedURL:  decision.MatchedURL,
	}
}

// recordConflict downgrades a matched decision to a recorded no_match that
// names the conflicting link. The stage record is never overwritten.
func (a *matchApplier) recordConflict(ctx context.Context, decision *MatchDecision, proposalID uuid.UUID, holder *models.StageRecord) (*models.MatchingResult, error) {
	a.logger.Warn("match conflicts with existing link",
		zap.String("stage_type", string(decision.Record.Type)),
		zap.String("stage_id", decision.Record.ID.String()),
		zap.String("proposal_id", proposalID.String()))

	downgraded := *decision
	downgraded.ProposalID = nil
	downgraded.Status = models.MatchStatusNoMatch
	downgraded.Confidence = 0
	downgraded.Reasoning = conflictReasoning(proposalID, holder)

	result := downgraded.Result()
	if err := a.matchingResults.Upsert(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// firstNonEmpty picks the orphan proposal's title and author from the pair,
// preferring the record that actually has them.
func firstNonEmpty(records ...*models.StageRecord) (string, *string) {
	var title string
	var author *string
	for _, rec := range records {
		if title == "" && rec.Title != "" {
			title = rec.Title
		}
		if author == nil && rec.AuthorName != nil {
			author = rec.AuthorName
		}
	}
	return title, author
}
