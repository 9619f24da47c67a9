package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/database"
	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// ProposalRepository provides data access for canonical proposals.
type ProposalRepository interface {
	// Create inserts a new proposal. Used only by orphan creation; the
	// upstream fetchers have their own write path.
	Create(ctx context.Context, title string, authorName, category *string) (*models.Proposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	// List returns all proposals, the fuzzy/classifier candidate pool.
	List(ctx context.Context) ([]*models.Proposal, error)
}

type proposalRepository struct {
	db database.DBTX
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(db database.DBTX) ProposalRepository {
	return &proposalRepository{db: db}
}

var _ ProposalRepository = (*proposalRepository)(nil)

func (r *proposalRepository) Create(ctx context.Context, title string, authorName, category *string) (*models.Proposal, error) {
	proposal := &models.Proposal{
		ID:         uuid.New(),
		Title:      title,
		AuthorName: authorName,
		Category:   category,
		CreatedAt:  time.Now(),
	}

	query := `
		INSERT INTO proposals (id, title, author_name, category, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		proposal.ID, proposal.Title, proposal.AuthorName, proposal.Category, proposal.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	return proposal, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	query := `
		SELECT id, title, author_name, category, created_at
		FROM proposals
		WHERE id = $1`

	var p models.Proposal
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.AuthorName, &p.Category, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	return &p, nil
}

func (r *proposalRepository) List(ctx context.Context) ([]*models.Proposal, error) {
	query := `
		SELECT id, title, author_name, category, created_at
		FROM proposals
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.Title, &p.AuthorName, &p.Category, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proposal row: %w", err)
		}
		proposals = append(proposals, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposal rows: %w", err)
	}

	return proposals, nil
}
