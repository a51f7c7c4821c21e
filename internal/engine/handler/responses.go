package handler

import (
	"encoding/json"
	"time"

	"complyflow/internal/assignment"
	"complyflow/internal/history"
	"complyflow/internal/notification"
	"complyflow/internal/settings"
	"complyflow/internal/workflow"
)

// ItemResponse is the HTTP rendering of an approval item.
type ItemResponse struct {
	ID          string          `json:"id"`
	Module      string          `json:"module"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	SubmittedBy string          `json:"submitted_by"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func fromItem(item workflow.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Module:      string(item.Module),
		Title:       item.Title,
		Description: item.Description,
		Priority:    string(item.Priority),
		Status:      string(item.Status),
		Payload:     item.Payload,
		SubmittedBy: item.SubmittedBy,
		Version:     item.Version,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func fromItems(items []workflow.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, fromItem(item))
	}
	return out
}

// AssignmentResponse is the HTTP rendering of an assignment.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	AssigneeID string    `json:"assignee_id"`
	AssignedBy string    `json:"assigned_by"`
	Reason     string    `json:"reason"`
	Note       string    `json:"note,omitempty"`
	Status     string    `json:"status"`
	Decision   string    `json:"decision,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func fromAssignment(a assignment.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID,
		WorkflowID: a.WorkflowID,
		AssigneeID: a.AssigneeID,
		AssignedBy: a.AssignedBy,
		Reason:     string(a.Reason),
		Note:       a.Note,
		Status:     string(a.Status),
		Decision:   string(a.Decision),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromAssignments(as []assignment.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(as))
	for _, a := range as {
		out = append(out, fromAssignment(a))
	}
	return out
}

// AssignResult bundles the item with the assignments an operation produced.
type AssignResult struct {
	Item        ItemResponse         `json:"item"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// HistoryEntryResponse is one audit trail record.
type HistoryEntryResponse struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func fromHistory(entries []history.Entry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Action:    string(e.Action),
			Detail:    e.Detail,
			Failed:    e.Failed,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// NotificationResponse is one notification record.
type NotificationResponse struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationListResponse carries the list plus the unread tally so clients
// can badge without a second call.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

func fromNotifications(ns []notification.Notification) NotificationListResponse {
	resp := NotificationListResponse{Notifications: make([]NotificationResponse, 0, len(ns))}
	for _, n := range ns {
		if !n.Read {
			resp.UnreadCount++
		}
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			ID:         n.ID,
			WorkflowID: n.WorkflowID,
			Message:    n.Message,
			Read:       n.Read,
			CreatedAt:  n.CreatedAt,
		})
	}
	return resp
}

// SettingsResponse is the HTTP rendering of a scope's assignment settings.
type SettingsResponse struct {
	Scope               string              `json:"scope"`
	Enabled             bool                `json:"enabled"`
	Strategy            string              `json:"strategy"`
	EligibleRoles       []string            `json:"eligible_roles"`
	EligibleDepartments []string            `json:"eligible_departments"`
	DepartmentRouting   map[string][]string `json:"department_routing"`
	ExpertiseRouting    map[string][]string `json:"expertise_routing"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func fromSettings(s settings.Settings) SettingsResponse {
	return SettingsResponse{
		Scope:               s.Scope,
		Enabled:             s.Enabled,
		Strategy:            string(s.Strategy),
		EligibleRoles:       s.EligibleRoles,
		EligibleDepartments: s.EligibleDepartments,
		DepartmentRouting:   routingToStrings(s.DepartmentRouting),
		ExpertiseRouting:    routingToStrings(s.ExpertiseRouting),
		UpdatedAt:           s.UpdatedAt,
	}
}

func routingToStrings(in map[workflow.ModuleType][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
