package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/govlens-inc/govlens-engine/pkg/database"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// MatchingResultFilter narrows List queries. Zero values mean "any".
type MatchingResultFilter struct {
	StageType models.StageType
	Status    models.MatchStatus
}

// MatchingResultRepository provides data access for the audit trail of
// match decisions, uniquely keyed by (stage_type, stage_id).
type MatchingResultRepository interface {
	// Upsert inserts or replaces the decision row for the result's
	// (stage_type, stage_id) key. Re-running matching on the same record
	// updates the row in place; a duplicate row is never created.
	Upsert(ctx context.Context, result *models.MatchingResult) error
	List(ctx context.Context, filter MatchingResultFilter) ([]*models.MatchingResult, error)
	// Summary returns decision counts grouped by stage type and status.
	Summary(ctx context.Context) ([]*models.MatchingSummaryRow, error)
}

type matchingResultRepository struct {
	db database.DBTX
}

// NewMatchingResultRepository creates a new MatchingResultRepository.
func NewMatchingResultRepository(db database.DBTX) MatchingResultRepository {
	return &matchingResultRepository{db: db}
}

var _ MatchingResultRepository = (*matchingResultRepository)(nil)

func (r *matchingResultRepository) Upsert(ctx context.Context, result *models.MatchingResult) error {
	now := time.Now()
	result.UpdatedAt = now
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
		result.CreatedAt = now
	}

	// Native atomic upsert keeps the one-row-per-key invariant under
	// concurrent commits.
	query := `
		INSERT INTO matching_results (
			id, stage_type, stage_id, proposal_id, status, method,
			confidence, reasoning, source_title, source_url, matched_url,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (stage_type, stage_id) DO UPDATE SET
			proposal_id = EXCLUDED.proposal_id,
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			confidence = EXCLUDED.confidence,
			reasoning = EXCLUDED.reasoning,
			source_title = EXCLUDED.source_title,
			source_url = EXCLUDED.source_url,
			matched_url = EXCLUDED.matched_url,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		result.ID, result.StageType, result.StageID, result.ProposalID,
		result.Status, result.Method, result.Confidence, result.Reasoning,
		result.SourceTitle, result.SourceURL, result.MatchedURL,
		result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert matching result: %w", err)
	}

	return nil
}

func (r *matchingResultRepository) List(ctx context.Context, filter MatchingResultFilter) ([]*models.MatchingResult, error) {
	query := `
		SELECT id, stage_type, stage_id, proposal_id, status, method,
		       confidence, reasoning, source_title, source_url, matched_url,
		       created_at, updated_at
		FROM matching_results
		WHERE ($1 = '' OR stage_type = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query, string(filter.StageType), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to query matching results: %w", err)
	}
	defer rows.Close()

	return scanMatchingResultRows(rows)
}

func (r *matchingResultRepository) Summary(ctx context.Context) ([]*models.MatchingSummaryRow, error) {
	query := `
		SELECT stage_type, status, COUNT(*)
		FROM matching_results
		GROUP BY stage_type, status
		ORDER BY stage_type, status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query matching summary: %w", err)
	}
	defer rows.Close()

	var summary []*models.MatchingSummaryRow
	for rows.Next() {
		var row models.MatchingSummaryRow
		if err := rows.Scan(&row.StageType, &row.Status, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary = append(summary, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	return summary, nil
}

func scanMatchingResultRows(rows pgx.Rows) ([]*models.MatchingResult, error) {
	var results []*models.MatchingResult

	for rows.Next() {
		var res models.MatchingResult

		err := rows.Scan(
			&res.ID, &res.StageType, &res.StageID, &res.ProposalID,
			&res.Status, &res.Method, &res.Confidence, &res.Reasoning,
			&res.SourceTitle, &res.SourceURL, &res.MatchedURL,
			&res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matching result row: %w", err)
		}

		results = append(results, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matching result rows: %w", err)
	}

	return results, nil
}
