package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Stage Types
// ============================================================================

// StageType identifies which of the three independent pipelines a record
// came from: the discussion forum, the off-chain (snapshot) vote, or the
// on-chain (tally) vote.
type StageType string

const (
	StageForum    StageType = "forum"
	StageSnapshot StageType = "snapshot"
	StageTally    StageType = "tally"
)

// ValidStageTypes contains all valid stage type values.
var ValidStageTypes = []StageType{
	StageForum,
	StageSnapshot,
	StageTally,
}

// IsValidStageType checks if the given stage type is valid.
func IsValidStageType(t StageType) bool {
	for _, v := range ValidStageTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ============================================================================
// Stage Record Model
// ============================================================================

// StageRecord is one row from a single stage pipeline. The fetchers own its
// lifecycle; the reconciliation engine only ever sets ProposalID, and only
// as a one-way transition from nil to a concrete proposal.
type StageRecord struct {
	ID         uuid.UUID  `json:"id"`
	Type       StageType  `json:"stage_type"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`

	Title      string  `json:"title"`
	AuthorName *string `json:"author_name,omitempty"`

	// Per-variant natural keys. Exactly one is populated for a given Type.
	TopicID   *string `json:"topic_id,omitempty"`   // forum
	VoteID    *string `json:"vote_id,omitempty"`    // snapshot
	OnchainID *string `json:"onchain_id,omitempty"` // tally

	URL string `json:"url"`

	// DiscussionURL is the canonical cross-stage link embedded by the
	// source itself (e.g. a snapshot proposal's "discussion" field).
	DiscussionURL *string `json:"discussion_url,omitempty"`

	// Body is the free-text description, scanned for embedded forum links.
	Body string `json:"body"`

	LastActivityAt time.Time `json:"last_activity_at"`
}

// NaturalKey returns the source-native identifier for this record's stage
// type, or nil when the source never supplied one.
func (r *StageRecord) NaturalKey() *string {
	switch r.Type {
	case StageForum:
		return r.TopicID
	case StageSnapshot:
		return r.VoteID
	case StageTally:
		return r.OnchainID
	}
	return nil
}

// IsMatched returns true once the record has been linked to a proposal.
func (r *StageRecord) IsMatched() bool {
	return r.ProposalID != nil
}
