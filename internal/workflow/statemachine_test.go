package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "complyflow/pkg/domain-errors"
)

func TestNext_FullLifecycle(t *testing.T) {
	steps := []struct {
		event Event
		want  Status
	}{
		{EventSubmit, StatusPendingAssignment},
		{EventAssign, StatusAssigned},
		{EventStartReview, StatusInReview},
		{EventApprove, StatusApproved},
		{EventClose, StatusClosed},
	}

	status := StatusDraft
	for _, step := range steps {
		next, err := Next(status, step.event)
		require.NoError(t, err, "event %s from %s", step.event, status)
		assert.Equal(t, step.want, next)
		status = next
	}
	assert.True(t, Terminal(status))
}

func TestNext_RejectPath(t *testing.T) {
	next, err := Next(StatusInReview, EventReject)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, next)

	next, err = Next(next, EventClose)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, next)
}

func TestNext_RevokeReturnsToPending(t *testing.T) {
	for _, from := range []Status{StatusAssigned, StatusInReview} {
		next, err := Next(from, EventRevoke)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingAssignment, next)
	}
}

func TestNext_InvalidTransitionLeavesStatus(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
	}{
		{StatusDraft, EventApprove},
		{StatusDraft, EventAssign},
		{StatusPendingAssignment, EventApprove},
		{StatusPendingAssignment, EventRevoke},
		{StatusAssigned, EventApprove},
		{StatusApproved, EventApprove},
		{StatusClosed, EventSubmit},
		{StatusClosed, EventClose},
	}

	for _, tc := range cases {
		got, err := Next(tc.from, tc.event)
		require.Error(t, err, "event %s from %s", tc.event, tc.from)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		assert.Equal(t, tc.from, got, "status must be unchanged on rejection")
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusClosed))
	assert.False(t, Terminal(StatusApproved), "approved still accepts close")
	assert.False(t, Terminal(StatusDraft))
}
