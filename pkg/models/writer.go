package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// WriterStatus is the lifecycle state of a writer profile.
type WriterStatus string

const (
	WriterOnboarding WriterStatus = "ONBOARDING"
	WriterActive     WriterStatus = "ACTIVE"
	WriterSuspended  WriterStatus = "SUSPENDED"
)

// IsValid returns true if the status is a known writer status.
func (s WriterStatus) IsValid() bool {
	switch s {
	case WriterOnboarding, WriterActive, WriterSuspended:
		return true
	default:
		return false
	}
}

// WriterProfile is the identity-linked record holding a writer's stylometric baseline.
// A profile has at most one baseline; establishing a new one replaces it.
type WriterProfile struct {
	ID                uuid.UUID            `json:"id"`
	UserID            string               `json:"user_id"`
	DisplayName       string               `json:"display_name"`
	Status            WriterStatus         `json:"status"`
	BaselineMetrics   *stylometry.Features `json:"baseline_metrics,omitempty"`
	BaselineUpdatedAt *time.Time           `json:"baseline_updated_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// HasBaseline reports whether a baseline has been established.
func (w *WriterProfile) HasBaseline() bool {
	return w.BaselineMetrics != nil
}

// RegisterWriterRequest creates a writer profile.
type RegisterWriterRequest struct {
	UserID      string `json:"user_id" validate:"required,max=255"`
	DisplayName string `json:"display_name" validate:"max=255"`
}

// BaselineRequest carries trusted writing samples used to establish a baseline.
type BaselineRequest struct {
	Samples []string `json:"samples" validate:"required,min=1,max=20,dive,required"`
}

// WriterStatusRequest changes a writer's status.
type WriterStatusRequest struct {
	Status WriterStatus `json:"status" validate:"required,oneof=ONBOARDING ACTIVE SUSPENDED"`
}
