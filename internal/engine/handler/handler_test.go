package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"complyflow/internal/assignment"
	"complyflow/internal/directory"
	"complyflow/internal/engine"
	"complyflow/internal/history"
	"complyflow/internal/notification"
	"complyflow/internal/platform/metrics"
	"complyflow/internal/platform/middleware"
	"complyflow/internal/settings"
	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
)

// stubValidator accepts tokens of the form "user:<id>" and rejects the rest.
type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	userID, ok := strings.CutPrefix(token, "user:")
	if !ok {
		return nil, fmt.Errorf("bad token")
	}
	return &middleware.JWTClaims{UserID: userID, Role: "compliance_officer"}, nil
}

// staticUsers is an empty reviewer directory.
type staticUsers struct{}

func (staticUsers) ListUsers(_ context.Context, _ directory.Filter) ([]directory.User, error) {
	return nil, nil
}

func newEngineRouter(t *testing.T) chi.Router {
	t.Helper()

	stores := engine.Stores{
		Items:       workflow.NewInMemoryStore(),
		Assignments: assignment.NewInMemoryStore(),
		History:     history.NewInMemoryStore(),
	}
	notifStore := notification.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	svc := engine.NewService(
		stores,
		engine.NewMemoryTx(stores),
		settings.NewService(settings.NewInMemoryStore()),
		directory.NewAdapter(staticUsers{}, stores.Assignments),
		strategy.NewInMemoryCursorStore(),
		notification.NewEmitter(notifStore, logger, m),
		notifStore,
		logger,
		m,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequireAuth(stubValidator{}, logger))
	New(svc, logger).Register(r)
	return r
}

func do(t *testing.T, router chi.Router, method, path, user string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer user:"+user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	router := newEngineRouter(t)
	rec := do(t, router, http.MethodGet, "/items", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestApprovalFlowViaHandlers(t *testing.T) {
	router := newEngineRouter(t)

	rec := do(t, router, http.MethodPost, "/items", "requester", map[string]any{
		"module":   "document",
		"title":    "Retention policy v3",
		"priority": "high",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting item, got %d: %s", rec.Code, rec.Body.String())
	}
	item := decode[ItemResponse](t, rec)
	if item.Status != "pending_assignment" {
		t.Fatalf("expected pending_assignment, got %q", item.Status)
	}
	if item.SubmittedBy != "requester" {
		t.Fatalf("expected token identity as submitter, got %q", item.SubmittedBy)
	}

	rec = do(t, router, http.MethodPost, "/items/"+item.ID+"/assignments", "manager", map[string]any{
		"assignee_ids": []string{"rev-a"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 assigning, got %d: %s", rec.Code, rec.Body.String())
	}
	assigned := decode[AssignResult](t, rec)
	if len(assigned.Assignments) != 1 {
		t.Fatalf("expected one assignment, got %d", len(assigned.Assignments))
	}
	assignmentID := assigned.Assignments[0].ID

	rec = do(t, router, http.MethodPost, "/assignments/"+assignmentID+"/start", "rev-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting review, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/assignments/"+assignmentID+"/complete", "rev-a", map[string]string{
		"decision": "approve",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 completing, got %d: %s", rec.Code, rec.Body.String())
	}
	completed := decode[AssignResult](t, rec)
	if completed.Item.Status != "approved" {
		t.Fatalf("expected approved item, got %q", completed.Item.Status)
	}

	rec = do(t, router, http.MethodGet, "/items/"+item.ID+"/history", "manager", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing history, got %d", rec.Code)
	}
	trail := decode[[]HistoryEntryResponse](t, rec)
	if len(trail) < 4 {
		t.Fatalf("expected a full trail, got %d entries", len(trail))
	}
	if trail[0].Action != "item_submitted" {
		t.Fatalf("expected trail to begin with item_submitted, got %q", trail[0].Action)
	}

	// The reviewer sees the assignment notification and can mark it read.
	rec = do(t, router, http.MethodGet, "/notifications", "rev-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing notifications, got %d", rec.Code)
	}
	ns := decode[NotificationListResponse](t, rec)
	if len(ns.Notifications) != 1 || ns.UnreadCount != 1 {
		t.Fatalf("expected one unread notification, got %+v", ns)
	}

	rec = do(t, router, http.MethodPost, "/notifications/read", "rev-a", map[string]any{
		"ids": []string{ns.Notifications[0].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking read, got %d", rec.Code)
	}
}

func TestSubmitItemValidation(t *testing.T) {
	router := newEngineRouter(t)

	rec := do(t, router, http.MethodPost, "/items", "requester", map[string]string{
		"module": "document",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing title, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/items", "requester", map[string]string{
		"module": "payroll",
		"title":  "x",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown module, got %d", rec.Code)
	}
}

func TestAssignUnknownItem(t *testing.T) {
	router := newEngineRouter(t)

	rec := do(t, router, http.MethodPost, "/items/nope/assignments", "manager", map[string]any{
		"assignee_ids": []string{"rev-a"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", rec.Code)
	}
}

func TestAutoAssignNoEligibleReviewer(t *testing.T) {
	router := newEngineRouter(t)

	rec := do(t, router, http.MethodPost, "/items", "requester", map[string]string{
		"module": "document",
		"title":  "Unstaffed",
	})
	item := decode[ItemResponse](t, rec)

	rec = do(t, router, http.MethodPost, "/items/"+item.ID+"/auto-assign", "manager", map[string]any{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 with an empty reviewer pool, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "no_eligible_reviewer" {
		t.Fatalf("expected no_eligible_reviewer, got %q", body["error"])
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	router := newEngineRouter(t)

	rec := do(t, router, http.MethodGet, "/settings/global", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading default settings, got %d", rec.Code)
	}
	defaults := decode[SettingsResponse](t, rec)
	if !defaults.Enabled || defaults.Strategy != "workload_balanced" {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}

	rec = do(t, router, http.MethodPut, "/settings/global", "admin", map[string]any{
		"strategy":       "round_robin",
		"eligible_roles": []string{"compliance_officer"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating settings, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[SettingsResponse](t, rec)
	if updated.Strategy != "round_robin" {
		t.Fatalf("expected round_robin, got %q", updated.Strategy)
	}

	rec = do(t, router, http.MethodPut, "/settings/global", "admin", map[string]any{
		"strategy": "coin_flip",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown strategy, got %d", rec.Code)
	}
}
