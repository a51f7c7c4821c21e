// Package notification creates in-app notification records for affected
// users. Delivery (email, push) is someone else's job; persistence here is
// best-effort and never fails the operation that triggered it.
package notification

import (
	"time"
)

// Notification is owned by its recipient; the read flag is the only mutable
// field.
type Notification struct {
	ID          string
	RecipientID string
	WorkflowID  string
	Message     string
	Read        bool
	CreatedAt   time.Time
}
