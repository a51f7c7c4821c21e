// Package history is the audit trail of record: immutable, append-only
// entries for every action and state transition, including rejected
// attempts. Nothing here updates or deletes; corrections are compensating
// appends.
package history

import (
	"time"
)

// Action names what happened. The set is open: modules add actions as the
// engine grows, and the trail stores them verbatim.
type Action string

const (
	ActionSubmitted           Action = "item_submitted"
	ActionAssigned            Action = "assignment_created"
	ActionAssignmentRevoked   Action = "assignment_revoked"
	ActionAssignmentCompleted Action = "assignment_completed"
	ActionReviewStarted       Action = "review_started"
	ActionApproved            Action = "item_approved"
	ActionRejected            Action = "item_rejected"
	ActionClosed              Action = "item_closed"
	ActionReturnedToPending   Action = "item_returned_to_pending"
	ActionTransitionRejected  Action = "transition_rejected"
	ActionSettingsUpdated     Action = "settings_updated"
)

// Entry is one audit record. Failed marks an attempted event the state
// machine rejected; the item was left unchanged but the attempt is part of
// the trail.
type Entry struct {
	ID         string
	WorkflowID string
	Actor      string
	Action     Action
	Detail     string
	Failed     bool
	CreatedAt  time.Time
}
