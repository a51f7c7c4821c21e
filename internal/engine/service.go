// Package engine is the approval workflow assignment engine: it routes
// approval items to reviewers, manually or through a configured strategy,
// and keeps the audit and notification trails while doing so.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"complyflow/internal/assignment"
	"complyflow/internal/directory"
	"complyflow/internal/history"
	"complyflow/internal/notification"
	"complyflow/internal/platform/metrics"
	"complyflow/internal/settings"
	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// Service exposes the engine's invocation surface. All mutations to items,
// assignments, and history flow through the TxRunner as one atomic unit;
// notifications are emitted after commit and are best-effort.
type Service struct {
	stores        Stores
	runner        TxRunner
	settings      *settings.Service
	directory     *directory.Adapter
	cursors       strategy.CursorStore
	notifier      *notification.Emitter
	notifications notification.Store
	logger        *slog.Logger
	metrics       *metrics.Metrics
	itemLocks     *keyedMutex
}

func NewService(
	stores Stores,
	runner TxRunner,
	settingsSvc *settings.Service,
	dir *directory.Adapter,
	cursors strategy.CursorStore,
	notifier *notification.Emitter,
	notifications notification.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		stores:        stores,
		runner:        runner,
		settings:      settingsSvc,
		directory:     dir,
		cursors:       cursors,
		notifier:      notifier,
		notifications: notifications,
		logger:        logger,
		metrics:       m,
		itemLocks:     newKeyedMutex(),
	}
}

// SubmitRequest creates a new approval item.
type SubmitRequest struct {
	Module      string
	Title       string
	Description string
	Priority    string
	Payload     json.RawMessage
	SubmittedBy string
}

// SubmitItem creates the item and moves it to pending_assignment.
func (s *Service) SubmitItem(ctx context.Context, req SubmitRequest) (workflow.Item, error) {
	module, err := workflow.ParseModuleType(req.Module)
	if err != nil {
		return workflow.Item{}, err
	}
	priority, err := workflow.ParsePriority(req.Priority)
	if err != nil {
		return workflow.Item{}, err
	}
	if req.Title == "" {
		return workflow.Item{}, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if req.SubmittedBy == "" {
		return workflow.Item{}, dErrors.New(dErrors.CodeValidation, "submitter is required")
	}

	now := time.Now()
	item := workflow.Item{
		ID:          uuid.NewString(),
		Module:      module,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      workflow.StatusDraft,
		Payload:     req.Payload,
		SubmittedBy: req.SubmittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		if err := stores.Items.Create(ctx, item); err != nil {
			return err
		}
		next, err := workflow.Next(item.Status, workflow.EventSubmit)
		if err != nil {
			return err
		}
		item, err = stores.Items.UpdateStatus(ctx, item.ID, next, item.Version)
		if err != nil {
			return err
		}
		return stores.History.Append(ctx, s.entry(item.ID, req.SubmittedBy, history.ActionSubmitted,
			fmt.Sprintf("submitted %s %q", module, req.Title)))
	})
	if err != nil {
		return workflow.Item{}, err
	}
	s.countTransition(workflow.EventSubmit)
	return item, nil
}

// AssignManually binds the given reviewers to the item. Assignees that
// already hold an active assignment on the item are skipped silently
// (idempotent), not treated as errors.
func (s *Service) AssignManually(ctx context.Context, itemID string, assigneeIDs []string, note, actor string) (workflow.Item, []assignment.Assignment, error) {
	if len(assigneeIDs) == 0 {
		return workflow.Item{}, nil, dErrors.New(dErrors.CodeValidation, "assignee list must not be empty")
	}
	ids := dedupe(assigneeIDs)

	s.itemLocks.Lock(itemID)
	defer s.itemLocks.Unlock(itemID)

	var (
		item    workflow.Item
		created []assignment.Assignment
	)
	err := s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		created = created[:0]
		var err error
		item, err = stores.Items.Get(ctx, itemID)
		if err != nil {
			return err
		}
		return s.createAssignments(ctx, stores, &item, ids, assignment.ReasonManual, note, actor, &created)
	})
	if err != nil {
		return workflow.Item{}, nil, err
	}

	s.notifyAssigned(ctx, item, created)
	return item, created, nil
}

// AutoAssign resolves one assignee through the configured strategy. With
// forceReassign, existing active assignments are revoked first; without it
// the item must be awaiting assignment.
func (s *Service) AutoAssign(ctx context.Context, itemID string, forceReassign bool, actor string) (workflow.Item, []assignment.Assignment, error) {
	s.itemLocks.Lock(itemID)
	defer s.itemLocks.Unlock(itemID)

	item, err := s.stores.Items.Get(ctx, itemID)
	if err != nil {
		return workflow.Item{}, nil, err
	}

	cfg, err := s.settings.Get(ctx, settings.ScopeGlobal)
	if err != nil {
		return workflow.Item{}, nil, err
	}
	if !cfg.Enabled {
		return workflow.Item{}, nil, dErrors.New(dErrors.CodeValidation, "auto-assignment is disabled")
	}

	eligible, err := s.directory.EligibleReviewers(ctx, directory.Filter{
		Roles:       cfg.EligibleRoles,
		Departments: cfg.EligibleDepartments,
	})
	if err != nil {
		return workflow.Item{}, nil, err
	}

	resolver, err := strategy.New(cfg.Strategy, strategy.Config{
		Cursors:           s.cursors,
		DepartmentRouting: cfg.DepartmentRouting,
		ExpertiseRouting:  cfg.ExpertiseRouting,
	})
	if err != nil {
		return workflow.Item{}, nil, err
	}

	picked, err := resolver.Resolve(ctx, item, eligible)
	if err != nil {
		// NoEligibleReviewer leaves the item where it is; manual assignment
		// remains possible.
		return workflow.Item{}, nil, err
	}

	reason := assignment.AutoReason(cfg.Strategy)
	var created []assignment.Assignment
	err = s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		created = created[:0]
		var err error
		item, err = stores.Items.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if forceReassign {
			if err := s.revokeActive(ctx, stores, &item, actor, "superseded by reassignment"); err != nil {
				return err
			}
		} else if item.Status != workflow.StatusPendingAssignment {
			err := dErrors.Newf(dErrors.CodeInvalidTransition,
				"item %s is %s, not awaiting assignment", item.ID, item.Status)
			s.recordRejected(ctx, item.ID, actor, workflow.EventAssign, err)
			return err
		}
		return s.createAssignments(ctx, stores, &item, []string{picked.UserID}, reason, "", actor, &created)
	})
	if err != nil {
		return workflow.Item{}, nil, err
	}

	s.notifyAssigned(ctx, item, created)
	return item, created, nil
}

// StartReview moves the item into in_review on behalf of an assignee.
func (s *Service) StartReview(ctx context.Context, assignmentID, actor string) (workflow.Item, error) {
	a, err := s.stores.Assignments.Get(ctx, assignmentID)
	if err != nil {
		return workflow.Item{}, err
	}

	s.itemLocks.Lock(a.WorkflowID)
	defer s.itemLocks.Unlock(a.WorkflowID)

	var item workflow.Item
	err = s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		a, err := stores.Assignments.Get(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.Status != assignment.StatusActive {
			return dErrors.Newf(dErrors.CodeStaleState, "assignment %s is no longer active", assignmentID)
		}
		item, err = s.transition(ctx, stores, a.WorkflowID, workflow.EventStartReview, actor,
			history.ActionReviewStarted, fmt.Sprintf("review started by %s", actor))
		return err
	})
	if err != nil {
		return workflow.Item{}, err
	}

	s.notifier.Notify(ctx, item.ID, []string{item.SubmittedBy},
		fmt.Sprintf("Review of %q has started", item.Title))
	return item, nil
}

// CompleteAssignment records the reviewer's decision and drives the item's
// state machine. The first decision wins: once the item has left in_review,
// racing completions surface StaleState or InvalidTransition instead of
// double-transitioning.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID, decision, actor string) (workflow.Item, assignment.Assignment, error) {
	parsed, err := assignment.ParseDecision(decision)
	if err != nil {
		return workflow.Item{}, assignment.Assignment{}, err
	}

	pre, err := s.stores.Assignments.Get(ctx, assignmentID)
	if err != nil {
		return workflow.Item{}, assignment.Assignment{}, err
	}

	s.itemLocks.Lock(pre.WorkflowID)
	defer s.itemLocks.Unlock(pre.WorkflowID)

	event := workflow.EventApprove
	itemAction := history.ActionApproved
	if parsed == assignment.DecisionReject {
		event = workflow.EventReject
		itemAction = history.ActionRejected
	}

	var (
		item workflow.Item
		done assignment.Assignment
	)
	err = s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		a, err := stores.Assignments.Get(ctx, assignmentID)
		if err != nil {
			return err
		}
		item, err = stores.Items.Get(ctx, a.WorkflowID)
		if err != nil {
			return err
		}
		if a.Status != assignment.StatusActive {
			return dErrors.Newf(dErrors.CodeStaleState,
				"assignment %s already %s", assignmentID, a.Status)
		}
		next, err := workflow.Next(item.Status, event)
		if err != nil {
			s.recordRejected(ctx, item.ID, actor, event, err)
			return err
		}
		done, err = stores.Assignments.UpdateStatus(ctx, assignmentID,
			assignment.StatusActive, assignment.StatusCompleted, parsed)
		if err != nil {
			return err
		}
		item, err = stores.Items.UpdateStatus(ctx, item.ID, next, item.Version)
		if err != nil {
			return err
		}
		if err := stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionAssignmentCompleted,
			fmt.Sprintf("assignment %s completed with decision %s", assignmentID, parsed))); err != nil {
			return err
		}
		return stores.History.Append(ctx, s.entry(item.ID, actor, itemAction, string(parsed)))
	})
	if err != nil {
		return workflow.Item{}, assignment.Assignment{}, err
	}
	s.countTransition(event)

	s.notifier.Notify(ctx, item.ID, []string{item.SubmittedBy},
		fmt.Sprintf("%q was %s", item.Title, item.Status))
	return item, done, nil
}

// RevokeAssignment pulls a reviewer off the item without a decision. When no
// active assignment remains, the item returns to pending_assignment. No
// automatic reassignment happens.
func (s *Service) RevokeAssignment(ctx context.Context, assignmentID, actor string) (workflow.Item, error) {
	pre, err := s.stores.Assignments.Get(ctx, assignmentID)
	if err != nil {
		return workflow.Item{}, err
	}

	s.itemLocks.Lock(pre.WorkflowID)
	defer s.itemLocks.Unlock(pre.WorkflowID)

	var (
		item    workflow.Item
		revoked assignment.Assignment
	)
	err = s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		var err error
		item, err = stores.Items.Get(ctx, pre.WorkflowID)
		if err != nil {
			return err
		}
		revoked, err = stores.Assignments.UpdateStatus(ctx, assignmentID,
			assignment.StatusActive, assignment.StatusRevoked, "")
		if err != nil {
			return err
		}
		if err := stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionAssignmentRevoked,
			fmt.Sprintf("assignment of %s revoked", revoked.AssigneeID))); err != nil {
			return err
		}

		remaining, err := stores.Assignments.ListActiveByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			return nil
		}
		next, err := workflow.Next(item.Status, workflow.EventRevoke)
		if err != nil {
			s.recordRejected(ctx, item.ID, actor, workflow.EventRevoke, err)
			return err
		}
		item, err = stores.Items.UpdateStatus(ctx, item.ID, next, item.Version)
		if err != nil {
			return err
		}
		return stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionReturnedToPending,
			"no active assignment remains"))
	})
	if err != nil {
		return workflow.Item{}, err
	}
	s.countTransition(workflow.EventRevoke)

	s.notifier.Notify(ctx, item.ID, []string{revoked.AssigneeID},
		fmt.Sprintf("Your assignment on %q was revoked", item.Title))
	return item, nil
}

// CloseItem archives an approved or rejected item.
func (s *Service) CloseItem(ctx context.Context, itemID, actor string) (workflow.Item, error) {
	s.itemLocks.Lock(itemID)
	defer s.itemLocks.Unlock(itemID)

	var item workflow.Item
	err := s.runWithRetry(ctx, func(ctx context.Context, stores Stores) error {
		var err error
		item, err = s.transition(ctx, stores, itemID, workflow.EventClose, actor,
			history.ActionClosed, "item closed")
		return err
	})
	if err != nil {
		return workflow.Item{}, err
	}
	s.countTransition(workflow.EventClose)
	return item, nil
}

// GetItem returns one approval item.
func (s *Service) GetItem(ctx context.Context, itemID string) (workflow.Item, error) {
	return s.stores.Items.Get(ctx, itemID)
}

// ListItems returns items matching the filter.
func (s *Service) ListItems(ctx context.Context, filter workflow.ListFilter) ([]workflow.Item, error) {
	return s.stores.Items.List(ctx, filter)
}

// ListAssignments returns all assignments for an item, newest last.
func (s *Service) ListAssignments(ctx context.Context, itemID string) ([]assignment.Assignment, error) {
	if _, err := s.stores.Items.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.stores.Assignments.ListByItem(ctx, itemID)
}

// ListHistory returns the item's audit trail in append order.
func (s *Service) ListHistory(ctx context.Context, itemID string) ([]history.Entry, error) {
	if _, err := s.stores.Items.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.stores.History.ListByItem(ctx, itemID)
}

// ListNotifications returns a user's notifications, oldest first.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	return s.notifications.ListByRecipient(ctx, userID)
}

// MarkNotificationsRead flips the read flag on the caller's notifications.
func (s *Service) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "notification id list must not be empty")
	}
	return s.notifications.MarkRead(ctx, userID, ids)
}

// GetSettings returns the assignment settings for a scope, defaulted when
// unset.
func (s *Service) GetSettings(ctx context.Context, scope string) (settings.Settings, error) {
	return s.settings.Get(ctx, scope)
}

// UpdateSettings patches a scope's assignment settings.
func (s *Service) UpdateSettings(ctx context.Context, scope string, patch settings.UpdateRequest, actor string) (settings.Settings, error) {
	updated, err := s.settings.Update(ctx, scope, patch)
	if err != nil {
		return settings.Settings{}, err
	}
	if err := s.stores.History.Append(ctx, s.entry("", actor, history.ActionSettingsUpdated,
		fmt.Sprintf("settings updated for scope %s", scope))); err != nil {
		s.logger.WarnContext(ctx, "failed to record settings update", "scope", scope, "error", err)
	}
	return updated, nil
}

// createAssignments inserts one assignment per new assignee and moves the
// item to assigned when it was awaiting assignment. Callers hold the item
// lock and run inside the transaction.
func (s *Service) createAssignments(ctx context.Context, stores Stores, item *workflow.Item,
	assigneeIDs []string, reason assignment.Reason, note, actor string,
	created *[]assignment.Assignment) error {

	active, err := stores.Assignments.ListActiveByItem(ctx, item.ID)
	if err != nil {
		return err
	}
	alreadyAssigned := make(map[string]bool, len(active))
	for _, a := range active {
		alreadyAssigned[a.AssigneeID] = true
	}

	var newAssignees []string
	for _, id := range assigneeIDs {
		if !alreadyAssigned[id] {
			newAssignees = append(newAssignees, id)
		}
	}
	if len(newAssignees) == 0 {
		// Every requested assignee already holds an active assignment:
		// idempotent no-op.
		return nil
	}

	if item.Status == workflow.StatusPendingAssignment {
		next, err := workflow.Next(item.Status, workflow.EventAssign)
		if err != nil {
			return err
		}
		*item, err = stores.Items.UpdateStatus(ctx, item.ID, next, item.Version)
		if err != nil {
			return err
		}
		s.countTransition(workflow.EventAssign)
	} else if item.Status != workflow.StatusAssigned {
		err := dErrors.Newf(dErrors.CodeInvalidTransition,
			"event %q not allowed in status %q", workflow.EventAssign, item.Status)
		s.recordRejected(ctx, item.ID, actor, workflow.EventAssign, err)
		return err
	}

	now := time.Now()
	for _, assigneeID := range newAssignees {
		a := assignment.Assignment{
			ID:         uuid.NewString(),
			WorkflowID: item.ID,
			AssigneeID: assigneeID,
			AssignedBy: actor,
			Reason:     reason,
			Note:       note,
			Status:     assignment.StatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := stores.Assignments.Create(ctx, a); err != nil {
			return err
		}
		if err := stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionAssigned,
			fmt.Sprintf("%s assigned (%s)", assigneeID, reason))); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.AssignmentsTotal.WithLabelValues(string(reason)).Inc()
		}
		*created = append(*created, a)
	}
	return nil
}

// revokeActive revokes every active assignment on the item and, when the
// item is under assignment or review, returns it to pending_assignment.
func (s *Service) revokeActive(ctx context.Context, stores Stores, item *workflow.Item, actor, detail string) error {
	active, err := stores.Assignments.ListActiveByItem(ctx, item.ID)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	for _, a := range active {
		if _, err := stores.Assignments.UpdateStatus(ctx, a.ID,
			assignment.StatusActive, assignment.StatusRevoked, ""); err != nil {
			return err
		}
		if err := stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionAssignmentRevoked,
			fmt.Sprintf("assignment of %s revoked: %s", a.AssigneeID, detail))); err != nil {
			return err
		}
	}

	next, err := workflow.Next(item.Status, workflow.EventRevoke)
	if err != nil {
		s.recordRejected(ctx, item.ID, actor, workflow.EventRevoke, err)
		return err
	}
	*item, err = stores.Items.UpdateStatus(ctx, item.ID, next, item.Version)
	if err != nil {
		return err
	}
	s.countTransition(workflow.EventRevoke)
	return stores.History.Append(ctx, s.entry(item.ID, actor, history.ActionReturnedToPending, detail))
}

// transition applies one state machine event to the item and appends the
// matching history entry.
func (s *Service) transition(ctx context.Context, stores Stores, itemID string,
	event workflow.Event, actor string, action history.Action, detail string) (workflow.Item, error) {

	item, err := stores.Items.Get(ctx, itemID)
	if err != nil {
		return workflow.Item{}, err
	}
	next, err := workflow.Next(item.Status, event)
	if err != nil {
		s.recordRejected(ctx, item.ID, actor, event, err)
		return workflow.Item{}, err
	}
	item, err = stores.Items.UpdateStatus(ctx, itemID, next, item.Version)
	if err != nil {
		return workflow.Item{}, err
	}
	return item, stores.History.Append(ctx, s.entry(itemID, actor, action, detail))
}

// recordRejected appends the trail entry for an event the state machine
// rejected. It deliberately escapes the surrounding transaction (which is
// about to roll back) and writes through the base stores: rejected attempts
// are part of the audit trail even though the item is unchanged.
func (s *Service) recordRejected(ctx context.Context, itemID, actor string, event workflow.Event, cause error) {
	if s.metrics != nil {
		s.metrics.InvalidTransitionsTotal.Inc()
	}
	entry := s.entry(itemID, actor, history.ActionTransitionRejected,
		fmt.Sprintf("event %s rejected: %s", event, cause.Error()))
	entry.Failed = true
	if err := s.stores.History.Append(txcontext.Detach(context.WithoutCancel(ctx)), entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected transition",
			"workflow_id", itemID,
			"event", event,
			"error", err,
		)
	}
}

// runWithRetry retries a stale-state loser exactly once with freshly read
// state before surfacing the conflict.
func (s *Service) runWithRetry(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	err := s.runner.RunInTx(ctx, fn)
	if !dErrors.HasCode(err, dErrors.CodeStaleState) {
		return err
	}
	if s.metrics != nil {
		s.metrics.StaleStateRetriesTotal.Inc()
	}
	return s.runner.RunInTx(ctx, fn)
}

func (s *Service) notifyAssigned(ctx context.Context, item workflow.Item, created []assignment.Assignment) {
	if len(created) == 0 {
		return
	}
	recipients := make([]string, 0, len(created))
	for _, a := range created {
		recipients = append(recipients, a.AssigneeID)
	}
	s.notifier.Notify(ctx, item.ID, recipients,
		fmt.Sprintf("You have been assigned to review %q", item.Title))
}

func (s *Service) entry(workflowID, actor string, action history.Action, detail string) history.Entry {
	return history.Entry{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
}

func (s *Service) countTransition(event workflow.Event) {
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(event)).Inc()
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
