// Package board keeps a client-side view of change requests grouped into
// status columns and applies moves optimistically. A move is checked against
// the lifecycle rules before anything changes locally, rendered at once, and
// then either confirmed with the server's copy of the request or reverted to
// exactly where it was.
package board

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

var (
	ErrCardBusy    = errors.New("card has a move in flight")
	ErrUnknownCard = errors.New("card is not on the board")
	ErrClosed      = errors.New("board is closed")
)

// Transitioner submits a status change and returns the authoritative request.
type Transitioner interface {
	Transition(ctx context.Context, id uuid.UUID, to change.Status, comment string) (change.ChangeRequest, error)
}

// Loader fetches every request shown on the board.
type Loader interface {
	List(ctx context.Context) ([]change.ChangeRequest, error)
}

type Outcome string

const (
	// OutcomeIgnored is a drop onto the card's own slot.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeReordered moved the card within its column. Ordering is local only.
	OutcomeReordered            Outcome = "reordered"
	OutcomeRejected             Outcome = "rejected"
	OutcomeConfirmationRequired Outcome = "confirmation_required"
	OutcomeCommitted            Outcome = "committed"
	OutcomeReverted             Outcome = "reverted"
	// OutcomeDiscarded is a server answer that arrived after Close.
	OutcomeDiscarded Outcome = "discarded"
)

// Move is a drag-end event. Index is the destination position inside the
// column; a negative index appends.
type Move struct {
	ID        uuid.UUID
	To        change.Status
	Index     int
	Comment   string
	Confirmed bool
}

type Result struct {
	Outcome  Outcome
	Decision lifecycle.Decision
	// Message is the text to show the user, empty when there is nothing to say.
	Message string
	Change  change.ChangeRequest
	Err     error
}

type Card struct {
	Change  change.ChangeRequest
	Pending bool
}

type Column struct {
	Status change.Status
	Label  string
	Cards  []Card
}

type pendingMove struct {
	from      change.Status
	fromIndex int
	previous  change.ChangeRequest
}

// Board is safe for concurrent use. Moves of different cards proceed
// independently; a second move of a card with a move in flight fails with ErrCardBusy.
type Board struct {
	transitioner Transitioner
	loader       Loader
	statuses     []change.Status

	mu      sync.Mutex
	items   map[uuid.UUID]change.ChangeRequest
	columns map[change.Status][]uuid.UUID
	pending map[uuid.UUID]pendingMove
	// settled records the generation at which a move last replaced or
	// restored a card. A load that began earlier must not overwrite it.
	settled map[uuid.UUID]uint64
	gen     uint64
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Board)

// WithColumns limits and orders the visible columns. The default is every status.
func WithColumns(statuses ...change.Status) Option {
	return func(b *Board) {
		b.statuses = slices.Clone(statuses)
	}
}

func New(transitioner Transitioner, loader Loader, opts ...Option) *Board {
	b := &Board{
		transitioner: transitioner,
		loader:       loader,
		statuses:     slices.Clone(change.Statuses),
		items:        make(map[uuid.UUID]change.ChangeRequest),
		columns:      make(map[change.Status][]uuid.UUID),
		pending:      make(map[uuid.UUID]pendingMove),
		settled:      make(map[uuid.UUID]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load replaces the snapshot with the loader's view. Cards with a move in
// flight, and cards a move settled after the load began, keep their local
// copy and placement.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	since := b.gen
	b.mu.Unlock()

	items, err := b.loader.List(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	keepLocal := func(id uuid.UUID) bool {
		_, busy := b.pending[id]
		return busy || b.settled[id] > since
	}
	nextItems := make(map[uuid.UUID]change.ChangeRequest, len(items))
	nextColumns := make(map[change.Status][]uuid.UUID, len(b.statuses))
	for _, c := range items {
		if keepLocal(c.ID()) {
			continue
		}
		nextItems[c.ID()] = c
		nextColumns[c.Status()] = append(nextColumns[c.Status()], c.ID())
	}
	for _, st := range change.Statuses {
		for _, id := range b.columns[st] {
			if keepLocal(id) {
				nextItems[id] = b.items[id]
				nextColumns[st] = append(nextColumns[st], id)
			}
		}
	}
	for id, g := range b.settled {
		if g <= since {
			delete(b.settled, id)
		}
	}
	b.items = nextItems
	b.columns = nextColumns
	return nil
}

// Columns returns a copy of the visible columns.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Column, 0, len(b.statuses))
	for _, st := range b.statuses {
		ids := b.columns[st]
		col := Column{Status: st, Label: st.Label(), Cards: make([]Card, 0, len(ids))}
		for _, id := range ids {
			_, busy := b.pending[id]
			col.Cards = append(col.Cards, Card{Change: b.items[id], Pending: busy})
		}
		out = append(out, col)
	}
	return out
}

// Card returns the current local copy of id.
func (b *Board) Card(id uuid.UUID) (Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.items[id]
	if !ok {
		return Card{}, false
	}
	_, busy := b.pending[id]
	return Card{Change: c, Pending: busy}, true
}

// Move applies m. Rejections, confirmation prompts and server failures are
// reported in Result; the returned error is reserved for moves that could not
// be attempted at all.
func (b *Board) Move(ctx context.Context, m Move) (Result, error) {
	res, submit, err := b.begin(m)
	if err != nil || !submit {
		return res, err
	}

	defer b.wg.Done()

	// An abandoned view must not abandon a submitted transition.
	updated, err := b.transitioner.Transition(context.WithoutCancel(ctx), m.ID, m.To, m.Comment)
	return b.finish(m, res.Decision, updated, err), nil
}

func (b *Board) begin(m Move) (Result, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Result{}, false, ErrClosed
	}
	current, ok := b.items[m.ID]
	if !ok {
		return Result{}, false, ErrUnknownCard
	}
	if _, busy := b.pending[m.ID]; busy {
		return Result{}, false, ErrCardBusy
	}
	if !m.To.IsValid() {
		return Result{}, false, lifecycle.Validationf("unknown status %q", m.To)
	}

	from := current.Status()
	fromIndex := slices.Index(b.columns[from], m.ID)

	if from == m.To {
		if m.Index < 0 || m.Index == fromIndex {
			return Result{Outcome: OutcomeIgnored, Change: current}, false, nil
		}
		b.columns[from] = insertAt(removeID(b.columns[from], m.ID), m.ID, m.Index)
		return Result{Outcome: OutcomeReordered, Change: current}, false, nil
	}

	decision := lifecycle.EvaluateChange(current, m.To)
	if !decision.Allowed {
		return Result{
			Outcome:  OutcomeRejected,
			Decision: decision,
			Message:  decision.Message,
			Change:   current,
			Err:      lifecycle.NewPolicyViolation(from, m.To, decision),
		}, false, nil
	}
	if lifecycle.RequiresConfirmation(m.To) && !m.Confirmed {
		return Result{
			Outcome:  OutcomeConfirmationRequired,
			Decision: decision,
			Message:  lifecycle.ConfirmCompletion,
			Change:   current,
		}, false, nil
	}

	b.wg.Add(1)
	b.pending[m.ID] = pendingMove{from: from, fromIndex: fromIndex, previous: current}
	optimistic := withStatus(current, m.To)
	b.items[m.ID] = optimistic
	b.columns[from] = removeID(b.columns[from], m.ID)
	b.columns[m.To] = insertAt(b.columns[m.To], m.ID, m.Index)
	return Result{Decision: decision, Change: optimistic}, true, nil
}

func (b *Board) finish(m Move, decision lifecycle.Decision, updated change.ChangeRequest, err error) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.pending[m.ID]
	delete(b.pending, m.ID)

	if b.closed {
		return Result{Outcome: OutcomeDiscarded, Decision: decision, Change: updated, Err: err}
	}

	b.gen++
	b.settled[m.ID] = b.gen
	b.columns[m.To] = removeID(b.columns[m.To], m.ID)
	if err != nil {
		b.items[m.ID] = p.previous
		b.columns[p.from] = insertAt(b.columns[p.from], m.ID, p.fromIndex)
		res := Result{Outcome: OutcomeReverted, Decision: decision, Message: lifecycle.UserMessage(err), Change: p.previous, Err: err}
		var pv *lifecycle.PolicyViolationError
		if errors.As(err, &pv) {
			res.Decision = pv.Decision
		}
		return res
	}

	b.items[m.ID] = updated
	index := m.Index
	if updated.Status() != m.To {
		index = -1
	}
	b.columns[updated.Status()] = insertAt(b.columns[updated.Status()], m.ID, index)
	return Result{Outcome: OutcomeCommitted, Decision: decision, Change: updated}
}

// Close detaches the view. Moves still in flight complete on the server but
// their results are no longer applied. Close waits for them or for ctx.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withStatus renders c in status to, mirroring the approval the server records.
func withStatus(c change.ChangeRequest, to change.Status) change.ChangeRequest {
	// The server answers with the acting user as approver; keep the old one until then.
	var approver *change.UserRef
	if change.ApprovesOnEntry(to) {
		approver = c.ApprovedBy()
	}
	return change.Hydrate(
		c.ID(), c.Title(), c.Description(), to, c.Priority(), c.Impact(), c.Type(), c.SystemsAffected(),
		c.RequestedBy(), approver, c.PlannedStart(), c.PlannedEnd(), c.CreatedAt(), c.UpdatedAt(),
	)
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids
	}
	return slices.Delete(slices.Clone(ids), i, i+1)
}

func insertAt(ids []uuid.UUID, id uuid.UUID, index int) []uuid.UUID {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	return slices.Insert(slices.Clone(ids), index, id)
}
