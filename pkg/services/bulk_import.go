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

// ImportRow is one curated mapping: vote URLs plus the authoritative forum
// thread they belong to. Manual overrides come in through the same shape
// with only one vote URL populated.
type ImportRow struct {
	ForumURL    string `json:"forum_url"`
	SnapshotURL string `json:"snapshot_url,omitempty"`
	TallyURL    string `json:"tally_url,omitempty"`
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Linked  int          `json:"linked"`
	Skipped int          `json:"skipped"`
	Errors  []BatchError `json:"errors,omitempty"`
}

// BulkImportService applies curated row mappings. Rows carry no confidence
// judgment of their own: each resolved link goes through the applier as a
// manual override at confidence 100, subject to the same uniqueness
// invariant as every other strategy.
type BulkImportService interface {
	Import(ctx context.Context, rows []ImportRow) (*ImportReport, error)
}

type bulkImportService struct {
	stageRecords repositories.StageRecordRepository
	applier      MatchApplier
	logger       *zap.Logger
}

// NewBulkImportService creates a new BulkImportService.
func NewBulkImportService(stageRecords repositories.StageRecordRepository, applier MatchApplier, logger *zap.Logger) BulkImportService {
	return &bulkImportService{
		stageRecords: stageRecords,
		applier:      applier,
		logger:       logger.Named("bulk_import"),
	}
}

var _ BulkImportService = (*bulkImportService)(nil)

func (s *bulkImportService) Import(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	report := &ImportReport{}

	for i, row := range rows {
		if err := s.importRow(ctx, row, report); err != nil {
			report.Errors = append(report.Errors, BatchError{
				Message: fmt.Sprintf("row %d: %s", i, err),
			})
		}
	}

	s.logger.Info("bulk import finished",
		zap.Int("rows", len(rows)),
		zap.Int("linked", report.Linked),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))

	return report, nil
}

func (s *bulkImportService) importRow(ctx context.Context, row ImportRow, report *ImportReport) error {
	proposalID, forumURL, err := s.resolveProposal(ctx, row.ForumURL)
	if err != nil {
		return err
	}

	votes := []struct {
		stageType models.StageType
		url       string
		key       *string
	}{
		{models.StageSnapshot, row.SnapshotURL, matching.ExtractSnapshotID(row.SnapshotURL)},
		{models.StageTally, row.TallyURL, matching.ExtractTallyID(row.TallyURL)},
	}

	for _, vote := range votes {
		if vote.url == "" {
			continue
		}

		record, err := s.lookupRecord(ctx, vote.stageType, vote.key, vote.url)
		if err != nil {
			return err
		}

		result, err := s.applier.Apply(ctx, &MatchDecision{
			Record:     record,
			ProposalID: &proposalID,
			Status:     models.MatchStatusMatched,
			Method:     models.MethodManualOverride,
			Confidence: matching.Score(models.MethodManualOverride, 0, false),
			Reasoning:  fmt.Sprintf("curated import row mapping to %s", row.ForumURL),
			MatchedURL: &forumURL,
		})
		if err != nil {
			return err
		}

		if result.Status == models.MatchStatusMatched {
			report.Linked++
		} else {
			report.Skipped++
		}
	}

	return nil
}

// resolveProposal maps an authoritative forum URL to the proposal its forum
// record is linked to.
func (s *bulkImportService) resolveProposal(ctx context.Context, forumURL string) (uuid.UUID, string, error) {
	if forumURL == "" {
		return uuid.Nil, "", errors.New("forum_url is required")
	}

	forum, err := s.lookupRecord(ctx, models.StageForum, matching.ExtractForumTopicID(forumURL), forumURL)
	if err != nil {
		return uuid.Nil, "", err
	}
	if forum.ProposalID == nil {
		return uuid.Nil, "", fmt.Errorf("forum record %s is not linked to a proposal yet", forum.ID)
	}

	return *forum.ProposalID, forum.URL, nil
}

// lookupRecord resolves a curated URL to its stage record: natural key when
// one can be extracted, exact URL lookup otherwise. Curated rows sometimes
// carry URL shapes the extractors do not recognize.
func (s *bulkImportService) lookupRecord(ctx context.Context, stageType models.StageType, key *string, url string) (*models.StageRecord, error) {
	var record *models.StageRecord
	var err error
	if key != nil {
		record, err = s.stageRecords.GetByNaturalKey(ctx, stageType, *key)
	} else {
		record, err = s.stageRecords.GetByURL(ctx, stageType, url)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("no %s record for url %q", stageType, url)
		}
		return nil, err
	}
	return record, nil
}
