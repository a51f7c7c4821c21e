// Package workflow defines the approval item, its lifecycle state machine,
// and the item stores. The engine orchestrates; this package owns the rules
// for which lifecycle moves are legal.
package workflow

import (
	"encoding/json"
	"time"

	dErrors "complyflow/pkg/domain-errors"
)

// ModuleType enumerates the object types that can require approval.
type ModuleType string

const (
	ModuleSystemRegistration ModuleType = "system_registration"
	ModuleRiskAssessment     ModuleType = "risk_assessment"
	ModuleDocument           ModuleType = "document"
	ModuleTraining           ModuleType = "training"
)

// ParseModuleType validates a caller-supplied module type.
func ParseModuleType(s string) (ModuleType, error) {
	switch m := ModuleType(s); m {
	case ModuleSystemRegistration, ModuleRiskAssessment, ModuleDocument, ModuleTraining:
		return m, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown module type %q", s)
	}
}

// Priority is carried as data for the dashboards; it does not influence
// routing.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a caller-supplied priority, defaulting to medium
// when empty.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown priority %q", s)
	}
}

// Item is the unit of work requiring sign-off. Payload is opaque to the
// engine; Version backs the optimistic concurrency check on status changes.
type Item struct {
	ID          string
	Module      ModuleType
	Title       string
	Description string
	Priority    Priority
	Status      Status
	Payload     json.RawMessage
	SubmittedBy string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
