package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

func TestEvaluate_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		from, to change.Status
		approved bool
		allowed  bool
		noop     bool
		reason   string
	}{
		{"approve", change.StatusPending, change.StatusApproved, false, true, false, ""},
		{"reject", change.StatusPending, change.StatusRejected, false, true, false, ""},
		{"start without approval", change.StatusPending, change.StatusInProgress, false, false, false, lifecycle.ReasonApprovalRequired},
		{"start with approval", change.StatusPending, change.StatusInProgress, true, true, false, ""},
		{"skip in progress", change.StatusPending, change.StatusCompleted, false, false, false, lifecycle.ReasonSkipInProgress},
		{"skip in progress approved", change.StatusPending, change.StatusCompleted, true, false, false, lifecycle.ReasonSkipInProgress},
		{"complete", change.StatusInProgress, change.StatusCompleted, false, true, false, ""},
		{"in progress back to pending", change.StatusInProgress, change.StatusPending, true, false, false, lifecycle.ReasonInProgressOnly},
		{"in progress cancelled", change.StatusInProgress, change.StatusCancelled, true, false, false, lifecycle.ReasonInProgressOnly},
		{"same status", change.StatusPending, change.StatusPending, false, false, true, ""},
		{"same status in progress", change.StatusInProgress, change.StatusInProgress, true, false, true, ""},
		{"completed same status", change.StatusCompleted, change.StatusCompleted, true, false, false, lifecycle.ReasonClosed},
		{"approved to rejected", change.StatusApproved, change.StatusRejected, true, true, false, ""},
		{"approved to in progress", change.StatusApproved, change.StatusInProgress, true, true, false, ""},
		{"rejected to pending", change.StatusRejected, change.StatusPending, false, true, false, ""},
		{"pending cancelled", change.StatusPending, change.StatusCancelled, false, true, false, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := lifecycle.Evaluate(tc.from, tc.to, tc.approved)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.noop, d.Noop)
			assert.Equal(t, tc.reason, d.Reason)
			if !d.Allowed && !d.Noop {
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestEvaluate_ClosedRejectsEveryDestination(t *testing.T) {
	t.Parallel()

	for _, from := range []change.Status{change.StatusCompleted, change.StatusCancelled} {
		for _, to := range change.Statuses {
			for _, approved := range []bool{true, false} {
				d := lifecycle.Evaluate(from, to, approved)
				require.False(t, d.Allowed, "%s -> %s", from, to)
				require.False(t, d.Noop, "%s -> %s", from, to)
				require.Equal(t, lifecycle.RuleClosed, d.Rule)
				require.Equal(t, lifecycle.ReasonClosed, d.Reason)
			}
		}
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	t.Parallel()

	for _, from := range change.Statuses {
		for _, to := range change.Statuses {
			for _, approved := range []bool{true, false} {
				first := lifecycle.Evaluate(from, to, approved)
				for i := 0; i < 3; i++ {
					require.Equal(t, first, lifecycle.Evaluate(from, to, approved))
				}
				require.False(t, first.Allowed && first.Noop)
			}
		}
	}
}

func TestRequiresConfirmation(t *testing.T) {
	t.Parallel()

	for _, s := range change.Statuses {
		assert.Equal(t, s == change.StatusCompleted, lifecycle.RequiresConfirmation(s))
	}
}

func TestEvaluateCancel(t *testing.T) {
	t.Parallel()

	for _, s := range change.Statuses {
		d := lifecycle.EvaluateCancel(s)
		if s.IsTerminal() {
			assert.False(t, d.Allowed, s)
			assert.Equal(t, lifecycle.RuleClosed, d.Rule)
			assert.Equal(t, lifecycle.MessageClosed, d.Message)
			continue
		}
		assert.True(t, d.Allowed, s)
		assert.Equal(t, lifecycle.RuleCancel, d.Rule)
	}
	// a board move out of IN_PROGRESS into CANCELLED stays refused
	assert.False(t, lifecycle.Evaluate(change.StatusInProgress, change.StatusCancelled, true).Allowed)
}
