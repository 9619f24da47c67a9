// Package services contains the matching strategies, the applier that
// commits their decisions, and the batch/job orchestration around them.
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/govlens-inc/govlens-engine/pkg/models"
)

// MatchDecision is a strategy's verdict for one stage record, before the
// applier commits it. A nil decision from a strategy means "no evidence,
// defer to the next strategy".
type MatchDecision struct {
	Record     *models.StageRecord
	ProposalID *uuid.UUID
	Status     models.MatchStatus
	Method     models.MatchMethod
	Confidence int
	Reasoning  string
	MatchedURL *string

	// OrphanWith is set when the record and a proposal-less sibling
	// mutually reference each other. The reconciler clears it when either
	// side's title resolves to an existing proposal; if it survives to the
	// applier, the applier creates the proposal and links both records.
	OrphanWith *models.StageRecord
}

// Result renders the decision as the audit row the applier persists.
func (d *MatchDecision) Result() *models.MatchingResult {
	confidence := d.Confidence
	return &models.MatchingResult{
		StageType:   d.Record.Type,
		StageID:     d.Record.ID,
		ProposalID:  d.ProposalID,
		Status:      d.Status,
		Method:      d.Method,
		Confidence:  &confidence,
		Reasoning:   d.Reasoning,
		SourceTitle: d.Record.Title,
		SourceURL:   d.Record.URL,
		MatchedURL:  d.MatchedURL,
	}
}

func noMatchDecision(record *models.StageRecord, method models.MatchMethod, reasoning string) *MatchDecision {
	return &MatchDecision{
		Record:    record,
		Status:    models.MatchStatusNoMatch,
		Method:    method,
		Reasoning: reasoning,
	}
}

func conflictReasoning(proposalID uuid.UUID, holder *models.StageRecord) string {
	return fmt.Sprintf("proposal %s already linked to %s record %s; kept existing link",
		proposalID, holder.Type, holder.ID)
}
