package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/memory"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

func validDTO() *change.CreateDTO {
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)
	return &change.CreateDTO{
		Title:           "Rotate TLS certificates",
		Description:     "Replace expiring certificates on the edge",
		Priority:        "high",
		Impact:          "medium",
		Type:            "security",
		PlannedStart:    &start,
		PlannedEnd:      &end,
		SystemsAffected: []string{"edge", "cdn"},
	}
}

func TestChangeService_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var created []*change.CreatedEvent
	f.bus.Subscribe(func(e *change.CreatedEvent) { created = append(created, e) })

	c, err := f.changes.Create(context.Background(), f.requester.ID(), validDTO())
	require.NoError(t, err)
	assert.Equal(t, change.StatusPending, c.Status())
	assert.Nil(t, c.ApprovedBy())
	assert.Equal(t, f.requester.ID(), c.RequestedBy().ID)
	assert.Equal(t, "Rita Requester", c.RequestedBy().Name)
	assert.Equal(t, change.PriorityHigh, c.Priority())
	assert.Equal(t, "SECURITY", c.Type())
	assert.Equal(t, []string{"edge", "cdn"}, c.SystemsAffected())
	require.Len(t, created, 1)
	assert.Equal(t, c.ID(), created[0].Change.ID())
}

func TestChangeService_CreateValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	dto := validDTO()
	dto.Title = ""
	dto.Impact = "catastrophic"
	_, err := f.changes.Create(ctx, f.requester.ID(), dto)
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "title")
	assert.Contains(t, verrs, "impact")
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	_, err = f.changes.Create(ctx, uuid.New(), validDTO())
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	items, err := f.changes.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestChangeService_GetAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	older := f.putChangeAt(change.StatusPending, change.PriorityLow, base)
	newer := f.putChangeAt(change.StatusApproved, change.PriorityHigh, base.Add(time.Minute))

	items, err := f.changes.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID(), items[0].ID())
	assert.Equal(t, older.ID(), items[1].ID())

	items, err = f.changes.List(ctx, &change.FindParams{Statuses: []change.Status{change.StatusPending}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, older.ID(), items[0].ID())

	_, err = f.changes.GetByID(ctx, uuid.New())
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))

	f.store.SetUnavailable(memory.ErrInjected)
	_, err = f.changes.List(ctx, nil)
	assert.Equal(t, lifecycle.KindStorage, lifecycle.KindOf(err))
}

func TestChangeService_Copy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.putChange(change.StatusApproved, true)

	cp, err := f.changes.Copy(context.Background(), src.ID(), f.manager.ID())
	require.NoError(t, err)
	assert.NotEqual(t, src.ID(), cp.ID())
	assert.Equal(t, "Copy of "+src.Title(), cp.Title())
	assert.Equal(t, change.StatusPending, cp.Status())
	assert.Nil(t, cp.ApprovedBy())
	assert.Equal(t, f.requester.ID(), cp.RequestedBy().ID)

	_, err = f.changes.Copy(context.Background(), uuid.New(), f.manager.ID())
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))
}

func TestChangeService_Cancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pending := f.putChange(change.StatusPending, false)
	res, err := f.changes.Cancel(ctx, pending.ID(), f.requester.ID(), "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, change.StatusCancelled, res.Change.Status())
	assert.Equal(t, []string{"no longer needed"}, commentsOf(t, f, pending.ID()))

	inProgress := f.putChange(change.StatusInProgress, true)
	res, err = f.changes.Cancel(ctx, inProgress.ID(), f.manager.ID(), "abandoned")
	require.NoError(t, err)
	assert.Equal(t, change.StatusInProgress, res.Previous)
	assert.Equal(t, change.StatusCancelled, statusOf(t, f, inProgress.ID()))
	assert.Nil(t, res.Change.ApprovedBy())
	assert.Equal(t, []string{"abandoned"}, commentsOf(t, f, inProgress.ID()))

	for _, st := range []change.Status{change.StatusApproved, change.StatusRejected} {
		c := f.putChange(st, st == change.StatusApproved)
		res, err = f.changes.Cancel(ctx, c.ID(), f.requester.ID(), "  ")
		require.NoError(t, err, st)
		assert.Equal(t, change.StatusCancelled, res.Change.Status())
		assert.Equal(t, []string{lifecycle.DefaultCancelComment}, commentsOf(t, f, c.ID()))
	}

	completed := f.putChange(change.StatusCompleted, true)
	_, err = f.changes.Cancel(ctx, completed.ID(), f.requester.ID(), "")
	require.ErrorIs(t, err, lifecycle.ErrPolicyViolation)
	assert.Equal(t, lifecycle.MessageClosed, lifecycle.UserMessage(err))
	assert.Empty(t, commentsOf(t, f, completed.ID()))

	_, err = f.changes.Cancel(ctx, pending.ID(), f.requester.ID(), "")
	require.ErrorIs(t, err, lifecycle.ErrPolicyViolation)
	assert.Equal(t, []string{"no longer needed"}, commentsOf(t, f, pending.ID()))

	_, err = f.changes.Cancel(ctx, uuid.New(), f.requester.ID(), "")
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))
}
