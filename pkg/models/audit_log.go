package models

import (
	"time"

	"github.com/google/uuid"
)

// Audited entity types.
const (
	AuditEntitySubmission   = "submission"
	AuditEntityAssignment   = "assignment"
	AuditEntityWriter       = "writer_profile"
	AuditEntitySystemConfig = "system_config"
)

// Audited actions.
const (
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionStatusChange = "status_change"
	AuditActionBaseline     = "baseline_established"
	AuditActionAnalysis     = "analysis_completed"
)

// AuditLogEntry is one append-only audit record.
type AuditLogEntry struct {
	ID         uuid.UUID      `json:"id"`
	Actor      string         `json:"actor"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter narrows the audit listing. Zero values match everything.
type AuditFilter struct {
	EntityType string
	EntityID   *uuid.UUID
	Limit      int
}

// DecisionRecord is the latest review decision on a submission, projected from the audit log.
type DecisionRecord struct {
	SubmissionID uuid.UUID        `json:"submission_id"`
	From         SubmissionStatus `json:"from"`
	To           SubmissionStatus `json:"to"`
	Notes        string           `json:"notes"`
	DecidedBy    string           `json:"decided_by"`
	DecidedAt    time.Time        `json:"decided_at"`
}

// StatusChangeDetails builds the details payload for a submission decision.
func StatusChangeDetails(from, to SubmissionStatus, notes string) map[string]any {
	return map[string]any{
		"from":  string(from),
		"to":    string(to),
		"notes": notes,
	}
}

// DecisionFromEntry projects a status_change audit entry into a DecisionRecord.
// Returns false if the entry is not a submission decision.
func DecisionFromEntry(e *AuditLogEntry) (*DecisionRecord, bool) {
	if e == nil || e.EntityType != AuditEntitySubmission || e.Action != AuditActionStatusChange {
		return nil, false
	}
	to, _ := e.Details["to"].(string)
	if to == "" {
		return nil, false
	}
	from, _ := e.Details["from"].(string)
	notes, _ := e.Details["notes"].(string)
	return &DecisionRecord{
		SubmissionID: e.EntityID,
		From:         SubmissionStatus(from),
		To:           SubmissionStatus(to),
		Notes:        notes,
		DecidedBy:    e.Actor,
		DecidedAt:    e.CreatedAt,
	}, true
}
