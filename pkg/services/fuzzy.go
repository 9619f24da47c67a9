package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/matching"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// FuzzyMatchService resolves stage records by title against the full
// proposal candidate pool: exact normalized equality first, token-overlap
// similarity second, slug comparison for id-less forum links last.
type FuzzyMatchService interface {
	// Match always returns a decision: matched, pending_review or
	// no_match. An empty candidate pool is a fatal precondition.
	Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error)
}

type fuzzyMatchService struct {
	logger *zap.Logger
}

// NewFuzzyMatchService creates a new FuzzyMatchService.
func NewFuzzyMatchService(logger *zap.Logger) FuzzyMatchService {
	return &fuzzyMatchService{logger: logger.Named("fuzzy_match")}
}

var _ FuzzyMatchService = (*fuzzyMatchService)(nil)

// fuzzyCandidate is the best-scoring proposal found so far.
type fuzzyCandidate struct {
	proposal   *models.Proposal
	method     models.MatchMethod
	confidence int
}

func (s *fuzzyMatchService) Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error) {
	if len(candidates) == 0 {
		return nil, apperrors.ErrNoCandidates
	}

	if matching.IsElectionTitle(record.Title) {
		return noMatchDecision(record, models.MethodFuzzyTitle, "election title, never maps to a proposal"), nil
	}
	if matching.IsRecurringProgramTitle(record.Title) {
		return noMatchDecision(record, models.MethodFuzzyTitle, "recurring program title, never maps to a proposal"), nil
	}

	normalized := matching.NormalizeTitle(record.Title)
	linkSlugs := idlessForumSlugs(record)

	var best *fuzzyCandidate
	for _, proposal := range candidates {
		candidate := scoreCandidate(record, proposal, normalized, linkSlugs)
		if candidate == nil {
			continue
		}
		if best == nil || candidate.confidence > best.confidence ||
			(candidate.confidence == best.confidence &&
				candidate.proposal.ID.String() < best.proposal.ID.String()) {
			best = candidate
		}
	}

	if best == nil {
		return noMatchDecision(record, models.MethodFuzzyTitle, "no candidate with any title overlap"), nil
	}

	s.logger.Debug("best fuzzy candidate",
		zap.String("stage_type", string(record.Type)),
		zap.String("stage_id", record.ID.String()),
		zap.String("proposal_id", best.proposal.ID.String()),
		zap.String("method", string(best.method)),
		zap.Int("confidence", best.confidence))

	if best.confidence >= matching.AcceptThreshold(best.method) {
		proposalID := best.proposal.ID
		return &MatchDecision{
			Record:     record,
			ProposalID: &proposalID,
			Status:     models.MatchStatusMatched,
			Method:     best.method,
			Confidence: best.confidence,
			Reasoning:  fmt.Sprintf("%s match against proposal %q", best.method, best.proposal.Title),
		}, nil
	}

	if best.confidence >= matching.ReviewFloor {
		// The suggested target travels in the reasoning; the proposal link
		// itself stays empty until a human confirms.
		return &MatchDecision{
			Record:     record,
			Status:     models.MatchStatusPendingReview,
			Method:     best.method,
			Confidence: best.confidence,
			Reasoning: fmt.Sprintf("below %s accept threshold; closest proposal %s %q",
				best.method, best.proposal.ID, best.proposal.Title),
		}, nil
	}

	return noMatchDecision(record, best.method,
		fmt.Sprintf("best candidate scored %d, below review floor", best.confidence)), nil
}

func scoreCandidate(record *models.StageRecord, proposal *models.Proposal, normalized string, linkSlugs []string) *fuzzyCandidate {
	sameAuthor := sameAuthorName(record.AuthorName, proposal.AuthorName)

	if normalized != "" && normalized == matching.NormalizeTitle(proposal.Title) {
		return &fuzzyCandidate{
			proposal:   proposal,
			method:     models.MethodExactTitle,
			confidence: matching.Score(models.MethodExactTitle, 0, sameAuthor),
		}
	}

	best := &fuzzyCandidate{
		proposal:   proposal,
		method:     models.MethodFuzzyTitle,
		confidence: matching.Score(models.MethodFuzzyTitle, matching.CalculateSimilarity(record.Title, proposal.Title), sameAuthor),
	}

	proposalSlug := matching.TitleToSlug(proposal.Title)
	for _, slug := range linkSlugs {
		score := matching.Score(models.MethodForumLink, matching.SlugSimilarity(slug, proposalSlug), sameAuthor)
		if score > best.confidence {
			best = &fuzzyCandidate{proposal: proposal, method: models.MethodForumLink, confidence: score}
		}
	}

	if best.confidence == 0 {
		return nil
	}
	return best
}

// idlessForumSlugs returns slugs of embedded forum links that carry no topic
// id, the only kind left for the slug-comparison method after deterministic
// matching has consumed the id-bearing ones.
func idlessForumSlugs(record *models.StageRecord) []string {
	var texts []string
	if record.DiscussionURL != nil {
		texts = append(texts, *record.DiscussionURL)
	}
	if record.Body != "" {
		texts = append(texts, record.Body)
	}

	var slugs []string
	for _, text := range texts {
		for _, link := range matching.ExtractForumLinks(text) {
			if link.TopicID != nil || matching.IsGenericSlug(link.Slug) {
				continue
			}
			slugs = append(slugs, link.Slug)
		}
	}
	return slugs
}

func sameAuthorName(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*a), strings.TrimSpace(*b))
}
