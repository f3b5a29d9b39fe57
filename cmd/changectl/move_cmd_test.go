package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/board"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/memory"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

func newLocalBoard(t *testing.T, status change.Status) (*board.Board, *memory.Store, change.ChangeRequest) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	bus := eventbus.NewEventPublisher(logger)
	store := memory.New()
	lc := services.NewLifecycleService(store, store.Changes(), store.Comments(), store.Users(), store.Journal(), bus)
	changes := services.NewChangeService(store, store.Changes(), store.Users(), lc, bus)

	actor := user.New("Max Manager", "max@example.com", user.RoleManager)
	store.PutUser(actor)
	c := change.New("Patch kernel", "apply CVE fix", change.PriorityCritical, change.ImpactHigh, actor.ID())
	c = change.Hydrate(c.ID(), c.Title(), c.Description(), status, c.Priority(), c.Impact(), c.Type(), nil,
		c.RequestedBy(), nil, nil, nil, c.CreatedAt(), c.UpdatedAt())
	store.PutChange(c)

	local := &board.Local{Lifecycle: lc, Changes: changes, ActorID: actor.ID()}
	b := board.New(local, local)
	require.NoError(t, b.Load(context.Background()))
	return b, store, c
}

func TestRunMove_DeclinedConfirmationLeavesRequest(t *testing.T) {
	t.Parallel()
	b, store, c := newLocalBoard(t, change.StatusInProgress)
	var prompted string
	decline := func(prompt string) (bool, error) {
		prompted = prompt
		return false, nil
	}

	err := runMove(context.Background(), io.Discard, b, board.Move{ID: c.ID(), To: change.StatusCompleted, Index: -1}, decline)
	require.Error(t, err)
	assert.Equal(t, exitAborted, exitCode(err))
	assert.Equal(t, lifecycle.ConfirmCompletion, prompted)

	got, err := store.Changes().GetByID(context.Background(), c.ID())
	require.NoError(t, err)
	assert.Equal(t, change.StatusInProgress, got.Status())
}

func TestRunMove_ConfirmedCompletionCommits(t *testing.T) {
	t.Parallel()
	b, _, c := newLocalBoard(t, change.StatusInProgress)
	var out bytes.Buffer

	err := runMove(context.Background(), &out, b, board.Move{ID: c.ID(), To: change.StatusCompleted, Index: -1, Comment: "done"},
		func(string) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Contains(t, out.String(), "is now Completed")
}

func TestRunMove_RejectionExitsWithRuleText(t *testing.T) {
	t.Parallel()
	b, _, c := newLocalBoard(t, change.StatusPending)

	err := runMove(context.Background(), io.Discard, b, board.Move{ID: c.ID(), To: change.StatusInProgress, Index: -1},
		func(string) (bool, error) { return true, nil })
	require.Error(t, err)
	assert.Equal(t, exitRejected, exitCode(err))
	assert.Equal(t, lifecycle.MessageApprovalRequired, err.Error())
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitValidation, exitCode(lifecycle.Validationf("bad")))
	assert.Equal(t, exitNotFound, exitCode(lifecycle.NotFoundf("gone")))
	assert.Equal(t, exitStorage, exitCode(lifecycle.Storage("op", errors.New("down"))))
	assert.Equal(t, exitAborted, exitCode(withCode(exitAborted, errors.New("no"))))
}
