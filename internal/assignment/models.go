// Package assignment persists the binding of reviewers to approval items.
// The ledger logic that mutates assignments together with item state lives
// in the engine service; this package owns the records and their stores.
package assignment

import (
	"time"

	"complyflow/internal/strategy"
	dErrors "complyflow/pkg/domain-errors"
)

// Status is the assignment lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRevoked   Status = "revoked"
)

// Decision is the reviewer's verdict recorded on completion.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a caller-supplied decision.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown decision %q", s)
	}
}

// Reason records how the assignment came to be: manual, or automatic with
// the strategy that produced it.
type Reason string

const ReasonManual Reason = "manual"

// AutoReason builds the reason for a strategy-produced assignment.
func AutoReason(t strategy.Type) Reason {
	return Reason("auto:" + string(t))
}

// Assignment binds one reviewer to one approval item for a review cycle. At
// most one active assignment exists per (item, assignee) pair.
type Assignment struct {
	ID         string
	WorkflowID string
	AssigneeID string
	AssignedBy string
	Reason     Reason
	Note       string
	Status     Status
	Decision   Decision
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
