// Package handler exposes the assignment engine over HTTP. Every route is
// authenticated; the caller identity from the token is the actor recorded in
// the audit trail.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"complyflow/internal/assignment"
	"complyflow/internal/engine"
	"complyflow/internal/history"
	"complyflow/internal/notification"
	"complyflow/internal/platform/middleware"
	"complyflow/internal/settings"
	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
	"complyflow/pkg/platform/httputil"
)

// Service defines the engine operations the HTTP layer depends on.
type Service interface {
	SubmitItem(ctx context.Context, req engine.SubmitRequest) (workflow.Item, error)
	AssignManually(ctx context.Context, itemID string, assigneeIDs []string, note, actor string) (workflow.Item, []assignment.Assignment, error)
	AutoAssign(ctx context.Context, itemID string, forceReassign bool, actor string) (workflow.Item, []assignment.Assignment, error)
	StartReview(ctx context.Context, assignmentID, actor string) (workflow.Item, error)
	CompleteAssignment(ctx context.Context, assignmentID, decision, actor string) (workflow.Item, assignment.Assignment, error)
	RevokeAssignment(ctx context.Context, assignmentID, actor string) (workflow.Item, error)
	CloseItem(ctx context.Context, itemID, actor string) (workflow.Item, error)
	GetItem(ctx context.Context, itemID string) (workflow.Item, error)
	ListItems(ctx context.Context, filter workflow.ListFilter) ([]workflow.Item, error)
	ListAssignments(ctx context.Context, itemID string) ([]assignment.Assignment, error)
	ListHistory(ctx context.Context, itemID string) ([]history.Entry, error)
	ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int, error)
	GetSettings(ctx context.Context, scope string) (settings.Settings, error)
	UpdateSettings(ctx context.Context, scope string, patch settings.UpdateRequest, actor string) (settings.Settings, error)
}

// Handler wires the engine endpoints to the engine service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an engine handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the engine endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.HandleSubmitItem)
		r.Get("/", h.HandleListItems)
		r.Get("/{itemID}", h.HandleGetItem)
		r.Post("/{itemID}/close", h.HandleCloseItem)
		r.Post("/{itemID}/assignments", h.HandleAssignManually)
		r.Post("/{itemID}/auto-assign", h.HandleAutoAssign)
		r.Get("/{itemID}/assignments", h.HandleListAssignments)
		r.Get("/{itemID}/history", h.HandleListHistory)
	})
	r.Route("/assignments", func(r chi.Router) {
		r.Post("/{assignmentID}/start", h.HandleStartReview)
		r.Post("/{assignmentID}/complete", h.HandleCompleteAssignment)
		r.Post("/{assignmentID}/revoke", h.HandleRevokeAssignment)
	})
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.HandleListNotifications)
		r.Post("/read", h.HandleMarkNotificationsRead)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Get("/{scope}", h.HandleGetSettings)
		r.Put("/{scope}", h.HandleUpdateSettings)
	})
}

// HandleSubmitItem handles POST /items.
func (h *Handler) HandleSubmitItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[SubmitItemRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	item, err := h.service.SubmitItem(ctx, engine.SubmitRequest{
		Module:      req.Module,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Payload:     req.Payload,
		SubmittedBy: actor,
	})
	if err != nil {
		h.fail(ctx, w, "item submission failed", err)
		return
	}

	h.logger.InfoContext(ctx, "item submitted",
		"request_id", middleware.GetRequestID(ctx),
		"workflow_id", item.ID,
		"module", item.Module,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromItem(item))
}

// HandleListItems handles GET /items.
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	filter := workflow.ListFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = workflow.Status(status)
	}
	if module := r.URL.Query().Get("module"); module != "" {
		parsed, err := workflow.ParseModuleType(module)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Module = parsed
	}

	items, err := h.service.ListItems(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "item list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromItems(items))
}

// HandleGetItem handles GET /items/{itemID}.
func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	item, err := h.service.GetItem(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(ctx, w, "item lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromItem(item))
}

// HandleCloseItem handles POST /items/{itemID}/close.
func (h *Handler) HandleCloseItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	item, err := h.service.CloseItem(ctx, chi.URLParam(r, "itemID"), actor)
	if err != nil {
		h.fail(ctx, w, "item close failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromItem(item))
}

// HandleAssignManually handles POST /items/{itemID}/assignments.
func (h *Handler) HandleAssignManually(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[AssignRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	item, created, err := h.service.AssignManually(ctx, itemID, req.AssigneeIDs, req.Note, actor)
	if err != nil {
		h.fail(ctx, w, "manual assignment failed", err)
		return
	}

	h.logger.InfoContext(ctx, "reviewers assigned",
		"request_id", middleware.GetRequestID(ctx),
		"workflow_id", itemID,
		"assigned", len(created),
	)
	httputil.WriteJSON(w, http.StatusCreated, AssignResult{
		Item:        fromItem(item),
		Assignments: fromAssignments(created),
	})
}

// HandleAutoAssign handles POST /items/{itemID}/auto-assign.
func (h *Handler) HandleAutoAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[AutoAssignRequest](w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	item, created, err := h.service.AutoAssign(ctx, itemID, req.ForceReassign, actor)
	if err != nil {
		h.fail(ctx, w, "auto assignment failed", err)
		return
	}

	h.logger.InfoContext(ctx, "reviewer auto-assigned",
		"request_id", middleware.GetRequestID(ctx),
		"workflow_id", itemID,
		"force_reassign", req.ForceReassign,
	)
	httputil.WriteJSON(w, http.StatusCreated, AssignResult{
		Item:        fromItem(item),
		Assignments: fromAssignments(created),
	})
}

// HandleListAssignments handles GET /items/{itemID}/assignments.
func (h *Handler) HandleListAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	as, err := h.service.ListAssignments(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(ctx, w, "assignment list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAssignments(as))
}

// HandleListHistory handles GET /items/{itemID}/history.
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	entries, err := h.service.ListHistory(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(ctx, w, "history list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromHistory(entries))
}

// HandleStartReview handles POST /assignments/{assignmentID}/start.
func (h *Handler) HandleStartReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	item, err := h.service.StartReview(ctx, chi.URLParam(r, "assignmentID"), actor)
	if err != nil {
		h.fail(ctx, w, "review start failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromItem(item))
}

// HandleCompleteAssignment handles POST /assignments/{assignmentID}/complete.
func (h *Handler) HandleCompleteAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[CompleteRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	assignmentID := chi.URLParam(r, "assignmentID")
	item, done, err := h.service.CompleteAssignment(ctx, assignmentID, req.Decision, actor)
	if err != nil {
		h.fail(ctx, w, "assignment completion failed", err)
		return
	}

	h.logger.InfoContext(ctx, "assignment completed",
		"request_id", middleware.GetRequestID(ctx),
		"assignment_id", assignmentID,
		"decision", req.Decision,
		"item_status", item.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, AssignResult{
		Item:        fromItem(item),
		Assignments: []AssignmentResponse{fromAssignment(done)},
	})
}

// HandleRevokeAssignment handles POST /assignments/{assignmentID}/revoke.
func (h *Handler) HandleRevokeAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	item, err := h.service.RevokeAssignment(ctx, chi.URLParam(r, "assignmentID"), actor)
	if err != nil {
		h.fail(ctx, w, "assignment revocation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromItem(item))
}

// HandleListNotifications handles GET /notifications.
func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	ns, err := h.service.ListNotifications(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "notification list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromNotifications(ns))
}

// HandleMarkNotificationsRead handles POST /notifications/read.
func (h *Handler) HandleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[MarkReadRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.service.MarkNotificationsRead(ctx, actor, req.IDs)
	if err != nil {
		h.fail(ctx, w, "notification read-marking failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// HandleGetSettings handles GET /settings/{scope}.
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	s, err := h.service.GetSettings(ctx, chi.URLParam(r, "scope"))
	if err != nil {
		h.fail(ctx, w, "settings lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSettings(s))
}

// HandleUpdateSettings handles PUT /settings/{scope}.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[UpdateSettingsRequest](w, r)
	if !ok {
		return
	}

	patch := settings.UpdateRequest{
		Enabled:             req.Enabled,
		EligibleRoles:       req.EligibleRoles,
		EligibleDepartments: req.EligibleDepartments,
		DepartmentRouting:   routingFromStrings(req.DepartmentRouting),
		ExpertiseRouting:    routingFromStrings(req.ExpertiseRouting),
	}
	if req.Strategy != nil {
		parsed, err := strategy.ParseType(*req.Strategy)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		patch.Strategy = &parsed
	}

	scope := chi.URLParam(r, "scope")
	updated, err := h.service.UpdateSettings(ctx, scope, patch, actor)
	if err != nil {
		h.fail(ctx, w, "settings update failed", err)
		return
	}

	h.logger.InfoContext(ctx, "settings updated",
		"request_id", middleware.GetRequestID(ctx),
		"scope", scope,
	)
	httputil.WriteJSON(w, http.StatusOK, fromSettings(updated))
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (string, bool) {
	actor := middleware.GetUserID(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actor, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func routingFromStrings(in map[string][]string) map[workflow.ModuleType][]string {
	if in == nil {
		return nil
	}
	out := make(map[workflow.ModuleType][]string, len(in))
	for k, v := range in {
		out[workflow.ModuleType(k)] = v
	}
	return out
}
