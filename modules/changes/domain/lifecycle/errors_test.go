package lifecycle_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	d := lifecycle.Evaluate(change.StatusPending, change.StatusCompleted, false)
	pv := lifecycle.NewPolicyViolation(change.StatusPending, change.StatusCompleted, d)
	_, parseErr := change.ParseStatus("DONE")

	cases := map[string]struct {
		err  error
		kind lifecycle.Kind
	}{
		"policy":            {pv, lifecycle.KindPolicyViolation},
		"wrapped policy":    {fmt.Errorf("transition: %w", pv), lifecycle.KindPolicyViolation},
		"not found":         {lifecycle.NotFoundf("change %s", "x"), lifecycle.KindNotFound},
		"repo not found":    {change.ErrNotFound, lifecycle.KindNotFound},
		"validation":        {lifecycle.Validationf("bad"), lifecycle.KindValidation},
		"unknown status":    {parseErr, lifecycle.KindValidation},
		"empty comment":     {comment.ErrEmptyContent, lifecycle.KindValidation},
		"validation errors": {serrors.ValidationErrors{"Title": "required"}, lifecycle.KindValidation},
		"storage":           {lifecycle.Storage("update", errors.New("conn reset")), lifecycle.KindStorage},
		"unknown":           {errors.New("boom"), lifecycle.KindStorage},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.kind, lifecycle.KindOf(tc.err), name)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	d := lifecycle.Evaluate(change.StatusPending, change.StatusInProgress, false)
	err := fmt.Errorf("wrap: %w", lifecycle.NewPolicyViolation(change.StatusPending, change.StatusInProgress, d))
	assert.Equal(t, lifecycle.MessageApprovalRequired, lifecycle.UserMessage(err))
	assert.ErrorIs(t, err, lifecycle.ErrPolicyViolation)
	assert.Contains(t, err.Error(), lifecycle.ReasonApprovalRequired)

	assert.Equal(t, lifecycle.GenericFailureMessage, lifecycle.UserMessage(lifecycle.Storage("commit", errors.New("x"))))
	assert.Equal(t, lifecycle.GenericFailureMessage, lifecycle.UserMessage(lifecycle.Validationf("bad status")))
}

func TestStorage_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := lifecycle.Storage("load", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, lifecycle.ErrStorage)
	assert.NoError(t, lifecycle.Storage("noop", nil))
}
