package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Match Status
// ============================================================================

// MatchStatus is the outcome of a match attempt for one stage record.
type MatchStatus string

const (
	MatchStatusMatched MatchStatus = "matched"
	MatchStatusNoMatch MatchStatus = "no_match"
	// MatchStatusPendingReview marks a candidate above the noise floor but
	// below the auto-accept threshold, queued for human adjudication.
	MatchStatusPendingReview MatchStatus = "pending_review"
)

// ValidMatchStatuses contains all valid match status values.
var ValidMatchStatuses = []MatchStatus{
	MatchStatusMatched,
	MatchStatusNoMatch,
	MatchStatusPendingReview,
}

// IsValidMatchStatus checks if the given status is valid.
func IsValidMatchStatus(s MatchStatus) bool {
	for _, v := range ValidMatchStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// Match Method
// ============================================================================

// MatchMethod records which strategy produced a match decision.
type MatchMethod string

const (
	MethodDeterministicURL MatchMethod = "deterministic-url"
	MethodExactTitle       MatchMethod = "exact-title"
	MethodFuzzyTitle       MatchMethod = "fuzzy-title"
	MethodForumLink        MatchMethod = "forum-link"
	MethodClassifier       MatchMethod = "classifier"
	MethodManualOverride   MatchMethod = "manual-override"
)

// ValidMatchMethods contains all valid match method values.
var ValidMatchMethods = []MatchMethod{
	MethodDeterministicURL,
	MethodExactTitle,
	MethodFuzzyTitle,
	MethodForumLink,
	MethodClassifier,
	MethodManualOverride,
}

// IsValidMatchMethod checks if the given method is valid.
func IsValidMatchMethod(m MatchMethod) bool {
	for _, v := range ValidMatchMethods {
		if v == m {
			return true
		}
	}
	return false
}

// ============================================================================
// Matching Result Model
// ============================================================================

// MatchingResult is the auditable decision record for one (stage type,
// stage record) pair. It is upserted on every match attempt - re-running
// matching updates the row in place rather than inserting a duplicate.
type MatchingResult struct {
	ID         uuid.UUID   `json:"id"`
	StageType  StageType   `json:"stage_type"`
	StageID    uuid.UUID   `json:"stage_id"`
	ProposalID *uuid.UUID  `json:"proposal_id,omitempty"`
	Status     MatchStatus `json:"status"`
	Method     MatchMethod `json:"method"`

	// Confidence is the 0-100 method-weighted heuristic score, nil when no
	// candidate was scored at all.
	Confidence *int   `json:"confidence,omitempty"`
	Reasoning  string `json:"reasoning"`

	// Denormalized source fields for quick display.
	SourceTitle string  `json:"source_title"`
	SourceURL   string  `json:"source_url"`
	MatchedURL  *string `json:"matched_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MatchingSummaryRow is one cell of the type-by-status summary grid.
type MatchingSummaryRow struct {
	StageType StageType   `json:"stage_type"`
	Status    MatchStatus `json:"status"`
	Count     int         `json:"count"`
}
