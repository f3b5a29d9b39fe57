package change_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range change.Statuses {
		got, err := change.ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"", "pending", "DONE", "IN PROGRESS"} {
		_, err := change.ParseStatus(bad)
		require.ErrorIs(t, err, change.ErrInvalidValue, bad)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[change.Status]bool{
		change.StatusCompleted: true,
		change.StatusCancelled: true,
	}
	for _, s := range change.Statuses {
		assert.Equal(t, terminal[s], s.IsTerminal(), s)
	}
}

func TestNew_StartsPendingWithoutApproval(t *testing.T) {
	t.Parallel()

	requester := uuid.New()
	c := change.New(" Upgrade DB ", "minor version", change.PriorityHigh, change.ImpactMedium, requester,
		change.WithType("infrastructure"),
		change.WithSystemsAffected([]string{"db", " db ", "", "api"}),
	)
	assert.Equal(t, change.StatusPending, c.Status())
	assert.Equal(t, "Upgrade DB", c.Title())
	assert.Equal(t, "INFRASTRUCTURE", c.Type())
	assert.Equal(t, []string{"db", "api"}, c.SystemsAffected())
	assert.Equal(t, requester, c.RequestedBy().ID)
	assert.False(t, c.IsApproved())
	assert.Nil(t, c.ApproverID())
	assert.Equal(t, c.CreatedAt(), c.UpdatedAt())
}

func TestSetStatus_ApprovalFollowsDestination(t *testing.T) {
	t.Parallel()

	actor := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := change.New("t", "d", change.PriorityLow, change.ImpactLow, uuid.New())

	approved := c.SetStatus(change.StatusApproved, actor, at)
	require.True(t, approved.IsApproved())
	assert.Equal(t, actor, *approved.ApproverID())
	assert.Equal(t, at, approved.UpdatedAt())
	assert.False(t, c.IsApproved(), "receiver must not be mutated")

	inProgress := approved.SetStatus(change.StatusInProgress, uuid.New(), at)
	assert.False(t, inProgress.IsApproved())

	completer := uuid.New()
	completed := inProgress.SetStatus(change.StatusCompleted, completer, at)
	assert.Equal(t, completer, *completed.ApproverID())
}

func TestCopy(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)
	src := change.New("Rotate keys", "quarterly", change.PriorityCritical, change.ImpactHigh, uuid.New(),
		change.WithPlannedWindow(&start, &end),
		change.WithSystemsAffected([]string{"vault"}),
	).SetStatus(change.StatusApproved, uuid.New(), time.Now())

	cp := src.Copy()
	assert.NotEqual(t, src.ID(), cp.ID())
	assert.Equal(t, "Copy of Rotate keys", cp.Title())
	assert.Equal(t, change.StatusPending, cp.Status())
	assert.False(t, cp.IsApproved())
	assert.Equal(t, src.RequestedBy(), cp.RequestedBy())
	assert.Equal(t, src.Priority(), cp.Priority())
	assert.Equal(t, src.SystemsAffected(), cp.SystemsAffected())
	require.NotNil(t, cp.PlannedStart())
	assert.True(t, start.Equal(*cp.PlannedStart()))
}

func TestCreateDTO_Ok(t *testing.T) {
	t.Parallel()

	start := time.Now()
	end := start.Add(-time.Hour)
	dto := &change.CreateDTO{
		Title:        "x",
		Description:  "y",
		Priority:     "urgent",
		Impact:       "low",
		Type:         "security",
		PlannedStart: &start,
		PlannedEnd:   &end,
	}
	errs, ok := dto.Ok()
	require.False(t, ok)
	assert.Contains(t, errs, "priority")
	assert.Contains(t, errs, "plannedEnd")
	assert.NotContains(t, errs, "impact")

	dto.Priority = "high"
	dto.PlannedEnd = nil
	_, ok = dto.Ok()
	require.True(t, ok)

	requester := uuid.New()
	c, err := dto.ToEntity(requester)
	require.NoError(t, err)
	assert.Equal(t, change.PriorityHigh, c.Priority())
	assert.Equal(t, change.ImpactLow, c.Impact())
	assert.Equal(t, "SECURITY", c.Type())
}

func TestFindParams_Matches(t *testing.T) {
	t.Parallel()

	c := change.New("t", "d", change.PriorityLow, change.ImpactLow, uuid.New())
	assert.True(t, (*change.FindParams)(nil).Matches(c))
	assert.True(t, (&change.FindParams{Statuses: []change.Status{change.StatusPending}}).Matches(c))
	assert.False(t, (&change.FindParams{Priorities: []change.Priority{change.PriorityHigh}}).Matches(c))
	assert.False(t, (&change.FindParams{CreatedFrom: c.CreatedAt().Add(time.Second)}).Matches(c))
	assert.False(t, (&change.FindParams{CreatedTo: c.CreatedAt()}).Matches(c))
	assert.True(t, (&change.FindParams{CreatedTo: c.CreatedAt().Add(time.Nanosecond)}).Matches(c))
}
