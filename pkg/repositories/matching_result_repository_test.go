package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govlens-inc/govlens-engine/pkg/models"
)

func TestMatchingResultRepository_Upsert_AssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO matching_results").
		WithArgs(pgxmock.AnyArg(), models.StageForum, pgxmock.AnyArg(), pgxmock.AnyArg(),
			models.MatchStatusMatched, models.MethodExactTitle, pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	confidence := 95
	proposalID := uuid.New()
	result := &models.MatchingResult{
		StageType:   models.StageForum,
		StageID:     uuid.New(),
		ProposalID:  &proposalID,
		Status:      models.MatchStatusMatched,
		Method:      models.MethodExactTitle,
		Confidence:  &confidence,
		Reasoning:   "exact normalized title, same author",
		SourceTitle: "Treasury Swap",
		SourceURL:   "https://forum.example.org/t/treasury-swap/4821",
	}

	repo := NewMatchingResultRepository(mock)
	require.NoError(t, repo.Upsert(context.Background(), result))

	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.False(t, result.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchingResultRepository_List_Filtered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{
		"id", "stage_type", "stage_id", "proposal_id", "status", "method",
		"confidence", "reasoning", "source_title", "source_url", "matched_url",
		"created_at", "updated_at",
	}
	confidence := 72
	rows := pgxmock.NewRows(cols).
		AddRow(uuid.New(), models.StageSnapshot, uuid.New(), nil,
			models.MatchStatusPendingReview, models.MethodFuzzyTitle,
			&confidence, "similarity 67 below threshold", "STIP Backfund", "https://snapshot.org/#/x", nil,
			time.Now(), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM matching_results").
		WithArgs("snapshot", "pending_review").
		WillReturnRows(rows)

	repo := NewMatchingResultRepository(mock)
	results, err := repo.List(context.Background(), MatchingResultFilter{
		StageType: models.StageSnapshot,
		Status:    models.MatchStatusPendingReview,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusPendingReview, results[0].Status)
	assert.Nil(t, results[0].ProposalID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchingResultRepository_Summary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"stage_type", "status", "count"}).
		AddRow(models.StageForum, models.MatchStatusMatched, 12).
		AddRow(models.StageForum, models.MatchStatusNoMatch, 3).
		AddRow(models.StageTally, models.MatchStatusPendingReview, 1)

	mock.ExpectQuery("SELECT (.+) FROM matching_results").
		WillReturnRows(rows)

	repo := NewMatchingResultRepository(mock)
	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, 12, summary[0].Count)
	assert.Equal(t, models.StageTally, summary[2].StageType)

	assert.NoError(t, mock.ExpectationsWereMet())
}
