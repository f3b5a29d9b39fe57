package board_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/board"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

var manager = change.UserRef{ID: uuid.New(), Name: "Max Manager"}

type staticLoader []change.ChangeRequest

func (l staticLoader) List(context.Context) ([]change.ChangeRequest, error) {
	return l, nil
}

type fakeTransitioner struct {
	mu      sync.Mutex
	calls   int
	err     error
	gate    chan struct{}
	started chan struct{}
	ctxErr  error
}

func (f *fakeTransitioner) Transition(ctx context.Context, id uuid.UUID, to change.Status, _ string) (change.ChangeRequest, error) {
	f.mu.Lock()
	f.calls++
	gate, started, err := f.gate, f.started, f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if err != nil {
		return change.ChangeRequest{}, err
	}
	var approver *change.UserRef
	if change.ApprovesOnEntry(to) {
		approver = &manager
	}
	return change.Hydrate(id, "server copy", "d", to, change.PriorityLow, change.ImpactLow, "NORMAL", nil,
		change.UserRef{ID: uuid.New()}, approver, nil, nil, time.Now(), time.Now()), nil
}

func (f *fakeTransitioner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func card(status change.Status, approved bool) change.ChangeRequest {
	var approver *change.UserRef
	if approved {
		approver = &manager
	}
	now := time.Now()
	return change.Hydrate(uuid.New(), "card", "d", status, change.PriorityMedium, change.ImpactLow, "NORMAL", nil,
		change.UserRef{ID: uuid.New()}, approver, nil, nil, now, now)
}

func newBoard(t *testing.T, tr board.Transitioner, items ...change.ChangeRequest) *board.Board {
	t.Helper()
	b := board.New(tr, staticLoader(items))
	require.NoError(t, b.Load(context.Background()))
	return b
}

func columnIDs(b *board.Board, status change.Status) []uuid.UUID {
	for _, col := range b.Columns() {
		if col.Status == status {
			ids := make([]uuid.UUID, 0, len(col.Cards))
			for _, c := range col.Cards {
				ids = append(ids, c.Change.ID())
			}
			return ids
		}
	}
	return nil
}

func occurrences(b *board.Board, id uuid.UUID) int {
	n := 0
	for _, col := range b.Columns() {
		for _, c := range col.Cards {
			if c.Change.ID() == id {
				n++
			}
		}
	}
	return n
}

func TestBoard_ColumnsFollowStatusOrder(t *testing.T) {
	t.Parallel()

	b := newBoard(t, &fakeTransitioner{}, card(change.StatusCompleted, true), card(change.StatusPending, false))
	cols := b.Columns()
	require.Len(t, cols, len(change.Statuses))
	for i, st := range change.Statuses {
		assert.Equal(t, st, cols[i].Status)
		assert.Equal(t, st.Label(), cols[i].Label)
	}

	narrow := board.New(&fakeTransitioner{}, staticLoader(nil), board.WithColumns(change.StatusPending, change.StatusInProgress))
	assert.Len(t, narrow.Columns(), 2)
}

func TestBoard_DropInPlaceIsIgnored(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{}
	a, c := card(change.StatusPending, false), card(change.StatusPending, false)
	b := newBoard(t, tr, a, c)

	res, err := b.Move(context.Background(), board.Move{ID: a.ID(), To: change.StatusPending, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeIgnored, res.Outcome)

	res, err = b.Move(context.Background(), board.Move{ID: a.ID(), To: change.StatusPending, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeReordered, res.Outcome)
	assert.Equal(t, []uuid.UUID{c.ID(), a.ID()}, columnIDs(b, change.StatusPending))
	assert.Zero(t, tr.callCount())
}

func TestBoard_PolicyRejectionMakesNoCall(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{}
	pending := card(change.StatusPending, false)
	b := newBoard(t, tr, pending)

	res, err := b.Move(context.Background(), board.Move{ID: pending.ID(), To: change.StatusInProgress, Index: -1})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeRejected, res.Outcome)
	assert.Equal(t, lifecycle.MessageApprovalRequired, res.Message)
	require.ErrorIs(t, res.Err, lifecycle.ErrPolicyViolation)
	assert.Zero(t, tr.callCount())
	assert.Equal(t, []uuid.UUID{pending.ID()}, columnIDs(b, change.StatusPending))
}

func TestBoard_CompletionNeedsConfirmation(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{}
	inProgress := card(change.StatusInProgress, true)
	b := newBoard(t, tr, inProgress)

	res, err := b.Move(context.Background(), board.Move{ID: inProgress.ID(), To: change.StatusCompleted, Index: -1})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeConfirmationRequired, res.Outcome)
	assert.Equal(t, lifecycle.ConfirmCompletion, res.Message)
	assert.Zero(t, tr.callCount())
	assert.Equal(t, []uuid.UUID{inProgress.ID()}, columnIDs(b, change.StatusInProgress))

	res, err = b.Move(context.Background(), board.Move{ID: inProgress.ID(), To: change.StatusCompleted, Index: -1, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeCommitted, res.Outcome)
	assert.Equal(t, 1, tr.callCount())
}

func TestBoard_OptimisticMoveThenCommit(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	pending := card(change.StatusPending, false)
	other := card(change.StatusPending, false)
	b := newBoard(t, tr, pending, other)

	done := make(chan board.Result, 1)
	go func() {
		res, err := b.Move(context.Background(), board.Move{ID: pending.ID(), To: change.StatusApproved, Index: -1})
		assert.NoError(t, err)
		done <- res
	}()
	<-tr.started

	got, ok := b.Card(pending.ID())
	require.True(t, ok)
	assert.True(t, got.Pending)
	assert.Equal(t, change.StatusApproved, got.Change.Status())
	assert.Equal(t, []uuid.UUID{other.ID()}, columnIDs(b, change.StatusPending))
	assert.Equal(t, []uuid.UUID{pending.ID()}, columnIDs(b, change.StatusApproved))
	assert.Equal(t, 1, occurrences(b, pending.ID()))

	_, err := b.Move(context.Background(), board.Move{ID: pending.ID(), To: change.StatusRejected, Index: -1})
	require.ErrorIs(t, err, board.ErrCardBusy)

	close(tr.gate)
	res := <-done
	assert.Equal(t, board.OutcomeCommitted, res.Outcome)
	assert.Equal(t, "server copy", res.Change.Title())
	require.NotNil(t, res.Change.ApprovedBy())

	got, _ = b.Card(pending.ID())
	assert.False(t, got.Pending)
	assert.Equal(t, "server copy", got.Change.Title())
	assert.Equal(t, manager.Name, got.Change.ApprovedBy().Name)
}

func TestBoard_FailureRestoresExactPosition(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{err: lifecycle.Storage("update status", errors.New("connection reset"))}
	first := card(change.StatusPending, false)
	middle := card(change.StatusPending, false)
	last := card(change.StatusPending, false)
	b := newBoard(t, tr, first, middle, last)
	before := columnIDs(b, change.StatusPending)

	res, err := b.Move(context.Background(), board.Move{ID: middle.ID(), To: change.StatusRejected, Index: -1, Comment: "no"})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeReverted, res.Outcome)
	assert.Equal(t, lifecycle.GenericFailureMessage, res.Message)
	assert.Equal(t, lifecycle.KindStorage, lifecycle.KindOf(res.Err))

	assert.Equal(t, before, columnIDs(b, change.StatusPending))
	assert.Empty(t, columnIDs(b, change.StatusRejected))
	got, _ := b.Card(middle.ID())
	assert.False(t, got.Pending)
	assert.Equal(t, change.StatusPending, got.Change.Status())
}

func TestBoard_ServerPolicyViolationShowsRuleText(t *testing.T) {
	t.Parallel()

	d := lifecycle.Evaluate(change.StatusInProgress, change.StatusPending, true)
	tr := &fakeTransitioner{err: lifecycle.NewPolicyViolation(change.StatusInProgress, change.StatusPending, d)}
	approved := card(change.StatusApproved, true)
	b := newBoard(t, tr, approved)

	res, err := b.Move(context.Background(), board.Move{ID: approved.ID(), To: change.StatusInProgress, Index: -1})
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeReverted, res.Outcome)
	assert.Equal(t, lifecycle.MessageInProgressOnly, res.Message)
	assert.Equal(t, d, res.Decision)
	assert.Equal(t, []uuid.UUID{approved.ID()}, columnIDs(b, change.StatusApproved))
}

func TestBoard_CloseLetsInFlightMoveFinish(t *testing.T) {
	t.Parallel()

	tr := &fakeTransitioner{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	pending := card(change.StatusPending, false)
	b := newBoard(t, tr, pending)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan board.Result, 1)
	go func() {
		res, err := b.Move(ctx, board.Move{ID: pending.ID(), To: change.StatusApproved, Index: -1})
		assert.NoError(t, err)
		done <- res
	}()
	<-tr.started
	cancel()

	closed := make(chan error, 1)
	go func() { closed <- b.Close(context.Background()) }()
	require.Eventually(t, func() bool {
		_, err := b.Move(context.Background(), board.Move{ID: uuid.New(), To: change.StatusApproved})
		return errors.Is(err, board.ErrClosed)
	}, time.Second, time.Millisecond)
	close(tr.gate)

	res := <-done
	require.NoError(t, <-closed)
	assert.Equal(t, board.OutcomeDiscarded, res.Outcome)
	assert.NoError(t, tr.ctxErr)

	_, err := b.Move(context.Background(), board.Move{ID: pending.ID(), To: change.StatusRejected})
	require.ErrorIs(t, err, board.ErrClosed)
}

func TestBoard_UnknownCard(t *testing.T) {
	t.Parallel()

	b := newBoard(t, &fakeTransitioner{})
	_, err := b.Move(context.Background(), board.Move{ID: uuid.New(), To: change.StatusApproved})
	require.ErrorIs(t, err, board.ErrUnknownCard)
}

func TestRender(t *testing.T) {
	t.Parallel()

	c := card(change.StatusInProgress, true)
	b := newBoard(t, &fakeTransitioner{}, c)
	out := board.Render(b.Columns(), 28)
	assert.Contains(t, out, "In Progress (1)")
	assert.Contains(t, out, "Pending (0)")
	assert.Contains(t, out, "card")
}

type gatedLoader struct {
	mu      sync.Mutex
	items   []change.ChangeRequest
	gate    chan struct{}
	started chan struct{}
}

func (l *gatedLoader) set(items ...change.ChangeRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

func (l *gatedLoader) List(context.Context) ([]change.ChangeRequest, error) {
	l.mu.Lock()
	snapshot := append([]change.ChangeRequest(nil), l.items...)
	gate, started := l.gate, l.started
	l.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return snapshot, nil
}

func TestBoard_StaleLoadKeepsCommittedMove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := card(change.StatusPending, false)
	loader := &gatedLoader{}
	loader.set(a)
	b := board.New(&fakeTransitioner{}, loader)
	require.NoError(t, b.Load(ctx))

	loader.mu.Lock()
	loader.gate, loader.started = make(chan struct{}), make(chan struct{}, 1)
	loader.mu.Unlock()

	loaded := make(chan error, 1)
	go func() { loaded <- b.Load(ctx) }()
	<-loader.started

	res, err := b.Move(ctx, board.Move{ID: a.ID(), To: change.StatusApproved, Index: 0})
	require.NoError(t, err)
	require.Equal(t, board.OutcomeCommitted, res.Outcome)

	close(loader.gate)
	require.NoError(t, <-loaded)

	got, ok := b.Card(a.ID())
	require.True(t, ok)
	assert.Equal(t, change.StatusApproved, got.Change.Status())
	assert.Equal(t, []uuid.UUID{a.ID()}, columnIDs(b, change.StatusApproved))
	assert.Empty(t, columnIDs(b, change.StatusPending))
	assert.Equal(t, 1, occurrences(b, a.ID()))

	loader.mu.Lock()
	loader.gate, loader.started = nil, nil
	loader.mu.Unlock()
	now := time.Now()
	loader.set(change.Hydrate(a.ID(), "card", "d", change.StatusInProgress, change.PriorityMedium, change.ImpactLow, "NORMAL", nil,
		change.UserRef{ID: uuid.New()}, &manager, nil, nil, now, now))
	require.NoError(t, b.Load(ctx))
	got, ok = b.Card(a.ID())
	require.True(t, ok)
	assert.Equal(t, change.StatusInProgress, got.Change.Status())
	assert.Equal(t, 1, occurrences(b, a.ID()))
}
