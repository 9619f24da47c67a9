package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/database"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// StageRecordRepository provides data access for stage records. The engine
// reads records and performs exactly one mutation: the one-way transition of
// proposal_id from NULL to a concrete proposal.
type StageRecordRepository interface {
	GetByID(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.StageRecord, error)
	// ListUnmatched returns all records of a type with no proposal link yet.
	ListUnmatched(ctx context.Context, stageType models.StageType) ([]*models.StageRecord, error)
	// GetByNaturalKey looks a record up by its source-native identifier.
	GetByNaturalKey(ctx context.Context, stageType models.StageType, key string) (*models.StageRecord, error)
	// GetByProposalID returns the record of the given type linked to the
	// proposal, if any. Used for the unique-per-stage-type invariant check.
	GetByProposalID(ctx context.Context, stageType models.StageType, proposalID uuid.UUID) (*models.StageRecord, error)
	GetByURL(ctx context.Context, stageType models.StageType, url string) (*models.StageRecord, error)
	// SetProposalID links a record to a proposal. Fails with ErrConflict if
	// the record is already linked; the transition is strictly NULL -> value.
	SetProposalID(ctx context.Context, stageType models.StageType, id, proposalID uuid.UUID) error
}

type stageRecordRepository struct {
	db database.DBTX
}

// NewStageRecordRepository creates a new StageRecordRepository.
func NewStageRecordRepository(db database.DBTX) StageRecordRepository {
	return &stageRecordRepository{db: db}
}

var _ StageRecordRepository = (*stageRecordRepository)(nil)

const stageRecordColumns = `id, stage_type, proposal_id, title, author_name,
	       topic_id, vote_id, onchain_id, url, discussion_url, body, last_activity_at`

func (r *stageRecordRepository) GetByID(ctx context.Context, stageType models.StageType, id uuid.UUID) (*models.StageRecord, error) {
	query := `
		SELECT ` + stageRecordColumns + `
		FROM stage_records
		WHERE stage_type = $1 AND id = $2`

	return scanStageRecordRow(r.db.QueryRow(ctx, query, stageType, id))
}

func (r *stageRecordRepository) ListUnmatched(ctx context.Context, stageType models.StageType) ([]*models.StageRecord, error) {
	query := `
		SELECT ` + stageRecordColumns + `
		FROM stage_records
		WHERE stage_type = $1 AND proposal_id IS NULL
		ORDER BY last_activity_at ASC`

	rows, err := r.db.Query(ctx, query, stageType)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched stage records: %w", err)
	}
	defer rows.Close()

	return scanStageRecordRows(rows)
}

func (r *stageRecordRepository) GetByNaturalKey(ctx context.Context, stageType models.StageType, key string) (*models.StageRecord, error) {
	query := `
		SELECT ` + stageRecordColumns + `
		FROM stage_records
		WHERE stage_type = $1
		  AND ((stage_type = 'forum' AND topic_id = $2)
		    OR (stage_type = 'snapshot' AND vote_id = $2)
		    OR (stage_type = 'tally' AND onchain_id = $2))`

	return scanStageRecordRow(r.db.QueryRow(ctx, query, stageType, key))
}

func (r *stageRecordRepository) GetByProposalID(ctx context.Context, stageType models.StageType, proposalID uuid.UUID) (*models.StageRecord, error) {
	query := `
		SELECT ` + stageRecordColumns + `
		FROM stage_records
		WHERE stage_type = $1 AND proposal_id = $2`

	return scanStageRecordRow(r.db.QueryRow(ctx, query, stageType, proposalID))
}

func (r *stageRecordRepository) GetByURL(ctx context.Context, stageType models.StageType, url string) (*models.StageRecord, error) {
	query := `
		SELECT ` + stageRecordColumns + `
		FROM stage_records
		WHERE stage_type = $1 AND url = $2`

	return scanStageRecordRow(r.db.QueryRow(ctx, query, stageType, url))
}

func (r *stageRecordRepository) SetProposalID(ctx context.Context, stageType models.StageType, id, proposalID uuid.UUID) error {
	// proposal_id IS NULL in the predicate makes the NULL -> value
	// transition one-way even under concurrent commits.
	query := `
		UPDATE stage_records
		SET proposal_id = $3
		WHERE stage_type = $1 AND id = $2 AND proposal_id IS NULL`

	result, err := r.db.Exec(ctx, query, stageType, id, proposalID)
	if err != nil {
		return fmt.Errorf("failed to set stage record proposal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	return nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanStageRecordRow(row pgx.Row) (*models.StageRecord, error) {
	var rec models.StageRecord

	err := row.Scan(
		&rec.ID, &rec.Type, &rec.ProposalID, &rec.Title, &rec.AuthorName,
		&rec.TopicID, &rec.VoteID, &rec.OnchainID, &rec.URL, &rec.DiscussionURL,
		&rec.Body, &rec.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan stage record: %w", err)
	}

	return &rec, nil
}

func scanStageRecordRows(rows pgx.Rows) ([]*models.StageRecord, error) {
	var records []*models.StageRecord

	for rows.Next() {
		var rec models.StageRecord

		err := rows.Scan(
			&rec.ID, &rec.Type, &rec.ProposalID, &rec.Title, &rec.AuthorName,
			&rec.TopicID, &rec.VoteID, &rec.OnchainID, &rec.URL, &rec.DiscussionURL,
			&rec.Body, &rec.LastActivityAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage record row: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage record rows: %w", err)
	}

	return records, nil
}
