package workflow

import (
	dErrors "complyflow/pkg/domain-errors"
)

// Status is the approval item's lifecycle state. An item has exactly one
// current status at any time.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingAssignment Status = "pending_assignment"
	StatusAssigned          Status = "assigned"
	StatusInReview          Status = "in_review"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusClosed            Status = "closed"
)

// Event is a lifecycle trigger applied to an item.
type Event string

const (
	EventSubmit      Event = "submit"
	EventAssign      Event = "assign"
	EventStartReview Event = "start_review"
	EventApprove     Event = "approve"
	EventReject      Event = "reject"
	EventClose       Event = "close"
	EventRevoke      Event = "revoke"
)

// transitions is the closed transition table. Any (status, event) pair not
// listed is rejected.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventSubmit: StatusPendingAssignment,
	},
	StatusPendingAssignment: {
		EventAssign: StatusAssigned,
	},
	StatusAssigned: {
		EventStartReview: StatusInReview,
		EventRevoke:      StatusPendingAssignment,
	},
	StatusInReview: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
		EventRevoke:  StatusPendingAssignment,
	},
	StatusApproved: {
		EventClose: StatusClosed,
	},
	StatusRejected: {
		EventClose: StatusClosed,
	},
}

// Next returns the status reached by applying event to from. Unknown pairs
// fail with CodeInvalidTransition and leave interpretation to the caller;
// the attempted event must still be recorded in the history trail.
func Next(from Status, event Event) (Status, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, dErrors.Newf(dErrors.CodeInvalidTransition,
		"event %q not allowed in status %q", event, from)
}

// Terminal reports whether no further events can be applied.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}
