package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/llm"
	"github.com/govlens-inc/govlens-engine/pkg/matching"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/retry"
)

const classifierSystemMessage = `You are a governance data reconciliation assistant.
You are given one stage record (a forum thread, an off-chain vote, or an
on-chain vote) and the complete list of known proposals. Decide which
proposal, if any, the record belongs to.

Respond with a single JSON object:
{"proposal_id": "<uuid or empty string>", "confidence": <0-100>, "reasoning": "<one sentence>"}

Only ever return a proposal_id that appears in the candidate list. Return an
empty proposal_id when no candidate fits.`

// classifierVerdict is the JSON shape the model must return.
type classifierVerdict struct {
	ProposalID string `json:"proposal_id"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// ClassifierService is the LLM-backed alternative to FuzzyMatchService,
// used when an endpoint is configured. Its verdicts go through the same
// thresholds and the same applier as every other strategy.
type ClassifierService interface {
	Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error)
}

type classifierService struct {
	client      llm.LLMClient
	temperature float64
	retryConfig *retry.Config
	logger      *zap.Logger
}

// NewClassifierService creates a new ClassifierService.
func NewClassifierService(client llm.LLMClient, temperature float64, logger *zap.Logger) ClassifierService {
	retryConfig := retry.DefaultConfig()
	retryConfig.MaxRetries = 3

	return &classifierService{
		client:      client,
		temperature: temperature,
		retryConfig: retryConfig,
		logger:      logger.Named("classifier"),
	}
}

var _ ClassifierService = (*classifierService)(nil)

func (s *classifierService) Match(ctx context.Context, record *models.StageRecord, candidates []*models.Proposal) (*MatchDecision, error) {
	if len(candidates) == 0 {
		return nil, apperrors.ErrNoCandidates
	}

	// Elections and recurring program rounds never map to a proposal; not
	// worth a model call.
	if matching.ShouldSkipTitle(record.Title) {
		return noMatchDecision(record, models.MethodClassifier,
			"election or recurring program title, never maps to a proposal"), nil
	}

	prompt := buildClassifierPrompt(record, candidates)

	response, err := retry.DoWithResult(ctx, s.retryConfig, func() (*llm.GenerateResponseResult, error) {
		return s.client.GenerateResponse(ctx, prompt, classifierSystemMessage, s.temperature)
	})
	if err != nil {
		return nil, fmt.Errorf("classifier call failed for %s record %s: %w", record.Type, record.ID, err)
	}

	verdict, err := llm.ParseJSONResponse[classifierVerdict](response.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse classifier verdict for %s record %s: %w", record.Type, record.ID, err)
	}

	return s.toDecision(record, candidates, verdict), nil
}

// toDecision converts a verdict into a decision, verifying first that the
// returned proposal actually exists in the candidate set. A hallucinated id
// is downgraded to no_match with an auto-correction note.
func (s *classifierService) toDecision(record *models.StageRecord, candidates []*models.Proposal, verdict classifierVerdict) *MatchDecision {
	if verdict.ProposalID == "" {
		return noMatchDecision(record, models.MethodClassifier, verdict.Reasoning)
	}

	proposal := findCandidate(candidates, verdict.ProposalID)
	if proposal == nil {
		s.logger.Warn("classifier returned proposal outside candidate set",
			zap.String("stage_type", string(record.Type)),
			zap.String("stage_id", record.ID.String()),
			zap.String("returned_proposal_id", verdict.ProposalID))

		return noMatchDecision(record, models.MethodClassifier,
			verdict.Reasoning+" (auto-corrected: returned proposal_id not in candidate set)")
	}

	confidence := clampConfidence(verdict.Confidence)

	if confidence >= matching.AcceptThreshold(models.MethodClassifier) {
		proposalID := proposal.ID
		return &MatchDecision{
			Record:     record,
			ProposalID: &proposalID,
			Status:     models.MatchStatusMatched,
			Method:     models.MethodClassifier,
			Confidence: confidence,
			Reasoning:  verdict.Reasoning,
		}
	}

	if confidence >= matching.ReviewFloor {
		return &MatchDecision{
			Record:     record,
			Status:     models.MatchStatusPendingReview,
			Method:     models.MethodClassifier,
			Confidence: confidence,
			Reasoning: fmt.Sprintf("%s; suggested proposal %s %q",
				verdict.Reasoning, proposal.ID, proposal.Title),
		}
	}

	return noMatchDecision(record, models.MethodClassifier, verdict.Reasoning)
}

func buildClassifierPrompt(record *models.StageRecord, candidates []*models.Proposal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stage record (%s):\n", record.Type)
	fmt.Fprintf(&b, "  title: %s\n", record.Title)
	if record.AuthorName != nil {
		fmt.Fprintf(&b, "  author: %s\n", *record.AuthorName)
	}
	fmt.Fprintf(&b, "  url: %s\n", record.URL)
	if body := strings.TrimSpace(record.Body); body != "" {
		fmt.Fprintf(&b, "  body: %s\n", truncate(body, 2000))
	}

	b.WriteString("\nCandidate proposals:\n")
	for _, p := range candidates {
		author := ""
		if p.AuthorName != nil {
			author = " by " + *p.AuthorName
		}
		fmt.Fprintf(&b, "  %s: %s%s\n", p.ID, p.Title, author)
	}

	return b.String()
}

func findCandidate(candidates []*models.Proposal, id string) *models.Proposal {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	for _, p := range candidates {
		if p.ID == parsed {
			return p
		}
	}
	return nil
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
