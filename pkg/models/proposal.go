package models

import (
	"time"

	"github.com/google/uuid"
)

// Proposal is the canonical record one real-world initiative reconciles
// into. At most one stage record per stage type may reference it. Proposals
// are created by the upstream fetchers, or by the match applier when two
// sibling stage records cross-reference each other without an existing
// proposal (orphan creation). The engine never deletes proposals.
type Proposal struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	AuthorName *string   `json:"author_name,omitempty"`
	Category   *string   `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
