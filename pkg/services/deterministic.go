package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/matching"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
)

// DeterministicMatchService resolves stage records through structural
// cross-references: canonical discussion URLs first, then links embedded in
// the record body. A hit either adopts the referenced record's proposal or,
// when both sides are proposal-less and mutually linked, proposes the pair
// for orphan creation. That proposal is provisional: the reconciler first
// tries to resolve either side's title to an existing proposal and only
// lets the orphan path run when neither resolves.
type DeterministicMatchService interface {
	// Match returns a decision when structural evidence exists, nil when
	// the record should fall through to title-based matching.
	Match(ctx context.Context, record *models.StageRecord) (*MatchDecision, error)
}

type deterministicMatchService struct {
	stageRecords repositories.StageRecordRepository
	logger       *zap.Logger
}

// NewDeterministicMatchService creates a new DeterministicMatchService.
func NewDeterministicMatchService(stageRecords repositories.StageRecordRepository, logger *zap.Logger) DeterministicMatchService {
	return &deterministicMatchService{
		stageRecords: stageRecords,
		logger:       logger.Named("deterministic_match"),
	}
}

var _ DeterministicMatchService = (*deterministicMatchService)(nil)

// pairings lists which stage types a record of a given type may reference.
// Later stages point backward: on-chain votes reference forum threads and
// off-chain votes; off-chain votes reference forum threads.
var pairings = map[models.StageType][]models.StageType{
	models.StageTally:    {models.StageForum, models.StageSnapshot},
	models.StageSnapshot: {models.StageForum},
	models.StageForum:    {},
}

func (s *deterministicMatchService) Match(ctx context.Context, record *models.StageRecord) (*MatchDecision, error) {
	for _, targetType := range pairings[record.Type] {
		target, err := s.findReferencedRecord(ctx, record, targetType)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue
		}

		decision, err := s.decideAgainst(ctx, record, target)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
	}

	return nil, nil
}

// findReferencedRecord resolves the record of targetType that this record
// points at, via its canonical discussion URL first and body links second.
// A malformed or unknown reference is not an error; it just yields nothing.
func (s *deterministicMatchService) findReferencedRecord(ctx context.Context, record *models.StageRecord, targetType models.StageType) (*models.StageRecord, error) {
	for _, key := range referencedKeys(record, targetType) {
		target, err := s.stageRecords.GetByNaturalKey(ctx, targetType, key)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve %s reference %q: %w", targetType, key, err)
		}
		return target, nil
	}
	return nil, nil
}

func (s *deterministicMatchService) decideAgainst(ctx context.Context, record, target *models.StageRecord) (*MatchDecision, error) {
	if target.IsMatched() {
		// Skip silently when the proposal already has a record of this
		// type; the conflict is not this record's to resolve.
		holder, err := s.stageRecords.GetByProposalID(ctx, record.Type, *target.ProposalID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check sibling for proposal %s: %w", target.ProposalID, err)
		}
		if holder != nil && holder.ID != record.ID {
			s.logger.Debug("deterministic target's proposal already has a sibling of this type",
				zap.String("stage_type", string(record.Type)),
				zap.String("stage_id", record.ID.String()),
				zap.String("proposal_id", target.ProposalID.String()))
			return nil, nil
		}

		return &MatchDecision{
			Record:     record,
			ProposalID: target.ProposalID,
			Status:     models.MatchStatusMatched,
			Method:     models.MethodDeterministicURL,
			Confidence: matching.Score(models.MethodDeterministicURL, 0, false),
			Reasoning:  fmt.Sprintf("canonical link to %s record %s", target.Type, target.ID),
			MatchedURL: &target.URL,
		}, nil
	}

	// Both sides proposal-less: only a mutual cross-reference justifies
	// minting a proposal neither pipeline has seen.
	if references(target, record) {
		return &MatchDecision{
			Record:     record,
			Status:     models.MatchStatusMatched,
			Method:     models.MethodDeterministicURL,
			Confidence: matching.Score(models.MethodDeterministicURL, 0, false),
			Reasoning:  fmt.Sprintf("mutual cross-reference with proposal-less %s record %s", target.Type, target.ID),
			MatchedURL: &target.URL,
			OrphanWith: target,
		}, nil
	}

	return nil, nil
}

// referencedKeys extracts every natural key of targetType that the record
// points at, canonical discussion URL first, body links after, in order.
func referencedKeys(record *models.StageRecord, targetType models.StageType) []string {
	var texts []string
	if record.DiscussionURL != nil {
		texts = append(texts, *record.DiscussionURL)
	}
	if record.Body != "" {
		texts = append(texts, record.Body)
	}

	var keys []string
	seen := make(map[string]bool)
	add := func(key *string) {
		if key != nil && !seen[*key] {
			seen[*key] = true
			keys = append(keys, *key)
		}
	}

	for _, text := range texts {
		switch targetType {
		case models.StageForum:
			for _, link := range matching.ExtractForumLinks(text) {
				if matching.IsGenericSlug(link.Slug) {
					continue
				}
				add(link.TopicID)
			}
		case models.StageSnapshot:
			add(matching.ExtractSnapshotID(text))
		case models.StageTally:
			add(matching.ExtractTallyID(text))
		}
	}

	return keys
}

// references reports whether from points at to via any extractable link.
func references(from, to *models.StageRecord) bool {
	key := to.NaturalKey()
	if key == nil {
		return false
	}
	for _, ref := range referencedKeys(from, to.Type) {
		if ref == *key {
			return true
		}
	}
	return false
}
