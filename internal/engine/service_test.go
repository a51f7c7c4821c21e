package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyflow/internal/assignment"
	"complyflow/internal/directory"
	"complyflow/internal/history"
	"complyflow/internal/notification"
	"complyflow/internal/platform/metrics"
	"complyflow/internal/settings"
	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
)

type staticSource struct {
	users []directory.User
}

func (s staticSource) ListUsers(_ context.Context, filter directory.Filter) ([]directory.User, error) {
	wantRole := make(map[string]bool, len(filter.Roles))
	for _, r := range filter.Roles {
		wantRole[r] = true
	}
	wantDept := make(map[string]bool, len(filter.Departments))
	for _, d := range filter.Departments {
		wantDept[d] = true
	}
	var out []directory.User
	for _, u := range s.users {
		if len(wantRole) > 0 && !wantRole[u.Role] {
			continue
		}
		if len(wantDept) > 0 && !wantDept[u.Department] {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fixture struct {
	svc           *Service
	items         workflow.ItemStore
	assignments   assignment.Store
	history       history.Store
	notifications notification.Store
	settings      *settings.Service
}

func newFixture(t *testing.T, users ...directory.User) *fixture {
	t.Helper()

	stores := Stores{
		Items:       workflow.NewInMemoryStore(),
		Assignments: assignment.NewInMemoryStore(),
		History:     history.NewInMemoryStore(),
	}
	notifStore := notification.NewInMemoryStore()
	settingsSvc := settings.NewService(settings.NewInMemoryStore())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	svc := NewService(
		stores,
		NewMemoryTx(stores),
		settingsSvc,
		directory.NewAdapter(staticSource{users: users}, stores.Assignments),
		strategy.NewInMemoryCursorStore(),
		notification.NewEmitter(notifStore, logger, m),
		notifStore,
		logger,
		m,
	)
	return &fixture{
		svc:           svc,
		items:         stores.Items,
		assignments:   stores.Assignments,
		history:       stores.History,
		notifications: notifStore,
		settings:      settingsSvc,
	}
}

func (f *fixture) submit(t *testing.T, title string) workflow.Item {
	t.Helper()
	item, err := f.svc.SubmitItem(context.Background(), SubmitRequest{
		Module:      "document",
		Title:       title,
		SubmittedBy: "requester",
	})
	require.NoError(t, err)
	return item
}

func actions(entries []history.Entry) []history.Action {
	out := make([]history.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestSubmitItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item, err := f.svc.SubmitItem(ctx, SubmitRequest{
		Module:      "risk_assessment",
		Title:       "Vendor onboarding risk review",
		Priority:    "high",
		SubmittedBy: "requester",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingAssignment, item.Status)
	assert.Equal(t, workflow.PriorityHigh, item.Priority)
	assert.NotEmpty(t, item.ID)

	trail, err := f.svc.ListHistory(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, history.ActionSubmitted, trail[0].Action)
	assert.Equal(t, "requester", trail[0].Actor)
}

func TestSubmitItem_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SubmitItem(ctx, SubmitRequest{Module: "document", SubmittedBy: "requester"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "missing title")

	_, err = f.svc.SubmitItem(ctx, SubmitRequest{Module: "payroll", Title: "x", SubmittedBy: "requester"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "unknown module")
}

func TestAssignManually(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Policy update")

	updated, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a", "rev-b"}, "please split sections", "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAssigned, updated.Status)
	require.Len(t, created, 2)
	assert.Equal(t, assignment.ReasonManual, created[0].Reason)
	assert.Equal(t, "manager", created[0].AssignedBy)
	assert.Equal(t, "please split sections", created[0].Note)

	for _, assignee := range []string{"rev-a", "rev-b"} {
		ns, err := f.svc.ListNotifications(ctx, assignee)
		require.NoError(t, err)
		require.Len(t, ns, 1)
		assert.Equal(t, item.ID, ns[0].WorkflowID)
	}
}

func TestAssignManually_EmptyList(t *testing.T) {
	f := newFixture(t)
	item := f.submit(t, "Policy update")

	_, _, err := f.svc.AssignManually(context.Background(), item.ID, nil, "", "manager")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAssignManually_IdempotentForActiveAssignee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Policy update")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Same assignee again plus a duplicate in the request itself: only the
	// genuinely new reviewer gets an assignment.
	_, created, err = f.svc.AssignManually(ctx, item.ID, []string{"rev-a", "rev-b", "rev-b"}, "", "manager")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "rev-b", created[0].AssigneeID)

	all, err := f.svc.ListAssignments(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAutoAssign_PicksLeastLoaded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		directory.User{ID: "staff-a", Role: "compliance_officer", Department: "legal"},
		directory.User{ID: "staff-b", Role: "compliance_officer", Department: "legal"},
	)

	// staff-a carries two open reviews already.
	for _, title := range []string{"First", "Second"} {
		busy := f.submit(t, title)
		_, _, err := f.svc.AssignManually(ctx, busy.ID, []string{"staff-a"}, "", "manager")
		require.NoError(t, err)
	}

	item := f.submit(t, "Third")
	updated, created, err := f.svc.AutoAssign(ctx, item.ID, false, "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAssigned, updated.Status)
	require.Len(t, created, 1)
	assert.Equal(t, "staff-b", created[0].AssigneeID)
	assert.Equal(t, assignment.Reason("auto:workload_balanced"), created[0].Reason)
}

func TestAutoAssign_Disabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.User{ID: "staff-a"})

	off := false
	_, err := f.svc.UpdateSettings(ctx, settings.ScopeGlobal, settings.UpdateRequest{Enabled: &off}, "admin")
	require.NoError(t, err)

	item := f.submit(t, "Blocked")
	_, _, err = f.svc.AutoAssign(ctx, item.ID, false, "manager")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAutoAssign_NoEligibleReviewer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item := f.submit(t, "Nobody home")
	_, _, err := f.svc.AutoAssign(ctx, item.ID, false, "manager")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoEligibleReviewer))

	// The item stays where manual assignment can still reach it.
	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingAssignment, got.Status)
}

func TestAutoAssign_RequiresPendingUnlessForced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		directory.User{ID: "staff-a"},
		directory.User{ID: "staff-b"},
	)

	item := f.submit(t, "Handover")
	_, _, err := f.svc.AssignManually(ctx, item.ID, []string{"staff-a"}, "", "manager")
	require.NoError(t, err)

	_, _, err = f.svc.AutoAssign(ctx, item.ID, false, "manager")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	// Forced reassignment revokes the incumbent and picks the idle reviewer.
	updated, created, err := f.svc.AutoAssign(ctx, item.ID, true, "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAssigned, updated.Status)
	require.Len(t, created, 1)

	all, err := f.svc.ListAssignments(ctx, item.ID)
	require.NoError(t, err)
	revoked := 0
	for _, a := range all {
		if a.Status == assignment.StatusRevoked {
			revoked++
		}
	}
	assert.Equal(t, 1, revoked)
}

func TestApprovalLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Quarterly training material")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)
	assignmentID := created[0].ID

	inReview, err := f.svc.StartReview(ctx, assignmentID, "rev-a")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInReview, inReview.Status)

	approved, done, err := f.svc.CompleteAssignment(ctx, assignmentID, "approve", "rev-a")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status)
	assert.Equal(t, assignment.StatusCompleted, done.Status)
	assert.Equal(t, assignment.DecisionApprove, done.Decision)

	closed, err := f.svc.CloseItem(ctx, item.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusClosed, closed.Status)

	trail, err := f.svc.ListHistory(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []history.Action{
		history.ActionSubmitted,
		history.ActionAssigned,
		history.ActionReviewStarted,
		history.ActionAssignmentCompleted,
		history.ActionApproved,
		history.ActionClosed,
	}, actions(trail))

	// The requester hears about the review starting and the outcome.
	ns, err := f.svc.ListNotifications(ctx, "requester")
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}

func TestCompleteAssignment_Reject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Incomplete evidence")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)
	_, err = f.svc.StartReview(ctx, created[0].ID, "rev-a")
	require.NoError(t, err)

	rejected, _, err := f.svc.CompleteAssignment(ctx, created[0].ID, "reject", "rev-a")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rejected.Status)
}

func TestCompleteAssignment_SkippingReviewIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Impatient reviewer")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)

	// Deciding while the item is still assigned, before start_review.
	_, _, err = f.svc.CompleteAssignment(ctx, created[0].ID, "approve", "rev-a")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAssigned, got.Status, "item unchanged by the rejected attempt")

	trail, err := f.svc.ListHistory(ctx, item.ID)
	require.NoError(t, err)
	last := trail[len(trail)-1]
	assert.Equal(t, history.ActionTransitionRejected, last.Action)
	assert.True(t, last.Failed)
}

func TestCompleteAssignment_ConcurrentOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Race to decide")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)
	_, err = f.svc.StartReview(ctx, created[0].ID, "rev-a")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.CompleteAssignment(ctx, created[0].ID, "approve", "rev-a")
		}(i)
	}
	wg.Wait()

	winners, stale := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case dErrors.HasCode(err, dErrors.CodeStaleState):
			stale++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, stale)
}

func TestRevokeAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Shuffled staffing")

	_, created, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a", "rev-b"}, "", "manager")
	require.NoError(t, err)

	// With a second reviewer still active the item stays assigned.
	stillAssigned, err := f.svc.RevokeAssignment(ctx, created[0].ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAssigned, stillAssigned.Status)

	// Revoking the last active assignment returns the item to the queue.
	pending, err := f.svc.RevokeAssignment(ctx, created[1].ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingAssignment, pending.Status)

	trail, err := f.svc.ListHistory(ctx, item.ID)
	require.NoError(t, err)
	assert.Contains(t, actions(trail), history.ActionReturnedToPending)
}

func TestMarkNotificationsRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t, "Read receipts")

	_, _, err := f.svc.AssignManually(ctx, item.ID, []string{"rev-a"}, "", "manager")
	require.NoError(t, err)

	ns, err := f.svc.ListNotifications(ctx, "rev-a")
	require.NoError(t, err)
	require.Len(t, ns, 1)

	_, err = f.svc.MarkNotificationsRead(ctx, "rev-a", nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	n, err := f.svc.MarkNotificationsRead(ctx, "rev-a", []string{ns[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Another user cannot mark someone else's notification.
	n, err = f.svc.MarkNotificationsRead(ctx, "rev-b", []string{ns[0].ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rr := strategy.TypeRoundRobin
	updated, err := f.svc.UpdateSettings(ctx, settings.ScopeGlobal, settings.UpdateRequest{
		Strategy:      &rr,
		EligibleRoles: []string{"compliance_officer"},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, strategy.TypeRoundRobin, updated.Strategy)

	got, err := f.svc.GetSettings(ctx, settings.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, []string{"compliance_officer"}, got.EligibleRoles)
}
