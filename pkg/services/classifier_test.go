package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/llm"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

func classifierResponding(content string) *llm.MockLLMClient {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(_ context.Context, _, _ string, _ float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: content}, nil
	}
	return client
}

func TestClassifier_AcceptsHighConfidenceVerdict(t *testing.T) {
	target := proposal("Treasury Swap", nil)
	candidates := []*models.Proposal{proposal("Unrelated", nil), target}

	content := fmt.Sprintf(`{"proposal_id": %q, "confidence": 95, "reasoning": "titles describe the same treasury action"}`, target.ID)
	svc := NewClassifierService(classifierResponding(content), 0.1, zap.NewNop())

	decision, err := svc.Match(context.Background(), forumRecord("Treasury Swap", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, decision.Status)
	assert.Equal(t, models.MethodClassifier, decision.Method)
	assert.Equal(t, 95, decision.Confidence)
	require.NotNil(t, decision.ProposalID)
	assert.Equal(t, target.ID, *decision.ProposalID)
}

func TestClassifier_MidBandGoesToPendingReview(t *testing.T) {
	target := proposal("Treasury Swap", nil)
	candidates := []*models.Proposal{target}

	content := fmt.Sprintf(`{"proposal_id": %q, "confidence": 75, "reasoning": "plausible but titles diverge"}`, target.ID)
	svc := NewClassifierService(classifierResponding(content), 0.1, zap.NewNop())

	decision, err := svc.Match(context.Background(), forumRecord("Treasury Swap Idea", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPendingReview, decision.Status)
	assert.Nil(t, decision.ProposalID)
	assert.Contains(t, decision.Reasoning, target.ID.String())
}

func TestClassifier_HallucinatedProposalDowngraded(t *testing.T) {
	candidates := []*models.Proposal{proposal("Treasury Swap", nil)}

	content := `{"proposal_id": "7b9e8a40-0000-4000-8000-000000000000", "confidence": 99, "reasoning": "strong match"}`
	svc := NewClassifierService(classifierResponding(content), 0.1, zap.NewNop())

	decision, err := svc.Match(context.Background(), forumRecord("Treasury Swap", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusNoMatch, decision.Status)
	assert.Equal(t, 0, decision.Confidence)
	assert.Contains(t, decision.Reasoning, "auto-corrected")
}

func TestClassifier_EmptyProposalIDIsNoMatch(t *testing.T) {
	candidates := []*models.Proposal{proposal("Treasury Swap", nil)}

	content := `{"proposal_id": "", "confidence": 0, "reasoning": "no candidate fits"}`
	svc := NewClassifierService(classifierResponding(content), 0.1, zap.NewNop())

	decision, err := svc.Match(context.Background(), forumRecord("Something Else Entirely", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusNoMatch, decision.Status)
	assert.Equal(t, "no candidate fits", decision.Reasoning)
}

func TestClassifier_EmptyPoolIsFatal(t *testing.T) {
	svc := NewClassifierService(llm.NewMockLLMClient(), 0.1, zap.NewNop())

	_, err := svc.Match(context.Background(), forumRecord("Treasury Swap", nil), nil)
	assert.ErrorIs(t, err, apperrors.ErrNoCandidates)
}

func TestClassifier_ParsesFencedJSON(t *testing.T) {
	target := proposal("Treasury Swap", nil)
	candidates := []*models.Proposal{target}

	content := fmt.Sprintf("Here is my verdict:\n```json\n{\"proposal_id\": %q, \"confidence\": 92, \"reasoning\": \"same proposal\"}\n```", target.ID)
	svc := NewClassifierService(classifierResponding(content), 0.1, zap.NewNop())

	decision, err := svc.Match(context.Background(), forumRecord("Treasury Swap", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, decision.Status)
}

func TestClassifier_SkipTitlesNeverReachTheModel(t *testing.T) {
	client := llm.NewMockLLMClient()
	svc := NewClassifierService(client, 0.1, zap.NewNop())
	candidates := []*models.Proposal{proposal("Treasury Swap", nil)}

	decision, err := svc.Match(context.Background(), forumRecord("Security Council Election 2024", nil), candidates)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusNoMatch, decision.Status)
	assert.Zero(t, client.GenerateResponseCalls, "skip titles must not spend a model call")
}

func TestClassifier_NonRetryableErrorSurfacesImmediately(t *testing.T) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(_ context.Context, _, _ string, _ float64) (*llm.GenerateResponseResult, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil)
	}
	svc := NewClassifierService(client, 0.1, zap.NewNop())

	_, err := svc.Match(context.Background(), forumRecord("Treasury Swap", nil), []*models.Proposal{proposal("Treasury Swap", nil)})
	require.Error(t, err)
	assert.Equal(t, 1, client.GenerateResponseCalls, "auth failures must not be retried")
}
