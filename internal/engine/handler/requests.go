package handler

import (
	"encoding/json"
	"strings"

	dErrors "complyflow/pkg/domain-errors"
)

// SubmitItemRequest is the HTTP request body for POST /items.
type SubmitItemRequest struct {
	Module      string          `json:"module"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Payload     json.RawMessage `json:"payload"`
}

func (r *SubmitItemRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Module == "" {
		return dErrors.New(dErrors.CodeValidation, "module is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

// AssignRequest is the HTTP request body for POST /items/{itemID}/assignments.
type AssignRequest struct {
	AssigneeIDs []string `json:"assignee_ids"`
	Note        string   `json:"note"`
}

func (r *AssignRequest) Validate() error {
	if len(r.AssigneeIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "assignee_ids must not be empty")
	}
	for _, id := range r.AssigneeIDs {
		if strings.TrimSpace(id) == "" {
			return dErrors.New(dErrors.CodeValidation, "assignee_ids must not contain blanks")
		}
	}
	return nil
}

// AutoAssignRequest is the HTTP request body for POST /items/{itemID}/auto-assign.
type AutoAssignRequest struct {
	ForceReassign bool `json:"force_reassign"`
}

// CompleteRequest is the HTTP request body for POST /assignments/{assignmentID}/complete.
type CompleteRequest struct {
	Decision string `json:"decision"`
}

func (r *CompleteRequest) Validate() error {
	if r.Decision == "" {
		return dErrors.New(dErrors.CodeValidation, "decision is required")
	}
	return nil
}

// MarkReadRequest is the HTTP request body for POST /notifications/read.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// UpdateSettingsRequest is the HTTP request body for PUT /settings/{scope}.
// Absent fields leave the stored value untouched; present slices and maps
// replace it.
type UpdateSettingsRequest struct {
	Enabled             *bool               `json:"enabled"`
	Strategy            *string             `json:"strategy"`
	EligibleRoles       []string            `json:"eligible_roles"`
	EligibleDepartments []string            `json:"eligible_departments"`
	DepartmentRouting   map[string][]string `json:"department_routing"`
	ExpertiseRouting    map[string][]string `json:"expertise_routing"`
}
