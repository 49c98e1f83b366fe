package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus only advances: PENDING, then IN_PROGRESS, then COMPLETED.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "PENDING"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
)

func (s AssignmentStatus) rank() int {
	switch s {
	case AssignmentPending:
		return 0
	case AssignmentInProgress:
		return 1
	case AssignmentCompleted:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether moving from s to next keeps the status moving forward.
// Staying in the same state is allowed.
func (s AssignmentStatus) CanAdvanceTo(next AssignmentStatus) bool {
	from, to := s.rank(), next.rank()
	return from >= 0 && to >= from
}

// Assignment is a unit of work owned by exactly one writer.
// CurrentSubmissionID points at the authoritative submission for workflow decisions.
type Assignment struct {
	ID                  uuid.UUID        `json:"id"`
	WriterID            uuid.UUID        `json:"writer_id"`
	Title               string           `json:"title"`
	Status              AssignmentStatus `json:"status"`
	CurrentSubmissionID *uuid.UUID       `json:"current_submission_id,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// CreateAssignmentRequest creates an assignment for a writer.
type CreateAssignmentRequest struct {
	WriterID uuid.UUID `json:"writer_id" validate:"required"`
	Title    string    `json:"title" validate:"required,max=500"`
}
