// Package memory is an in-process backing store for the changes module. It
// implements every repository the services need plus a transactor with
// all-or-nothing semantics, and lets tests inject write failures.
//
// Transactions are serialized store-wide. Writes inside a transaction are
// rolled back from a snapshot when the unit of work returns an error.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
)

// Op names a store operation that can be made to fail.
type Op string

const (
	OpReadChange    Op = "change.read"
	OpLockChange    Op = "change.get_for_update"
	OpCreateChange  Op = "change.create"
	OpUpdateStatus  Op = "change.update_status"
	OpReadComments  Op = "comment.read"
	OpCreateComment Op = "comment.create"
	OpReadUser      Op = "user.read"
	OpCreateUser    Op = "user.create"
	OpJournal       Op = "journal.append"
	OpCommit        Op = "tx.commit"
)

var ErrInjected = errors.New("memory: injected failure")

type txKey struct{}

type state struct {
	users    map[uuid.UUID]user.User
	changes  map[uuid.UUID]change.ChangeRequest
	comments []comment.Comment
	journal  []change.StatusChangedPayload
}

func (s state) clone() state {
	out := state{
		users:    make(map[uuid.UUID]user.User, len(s.users)),
		changes:  make(map[uuid.UUID]change.ChangeRequest, len(s.changes)),
		comments: append([]comment.Comment(nil), s.comments...),
		journal:  append([]change.StatusChangedPayload(nil), s.journal...),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.changes {
		out.changes[k] = v
	}
	return out
}

type Store struct {
	mu          sync.Mutex
	data        state
	failures    map[Op]error
	unavailable error
	commits     int
	rollbacks   int
}

func New() *Store {
	return &Store{
		data: state{
			users:   make(map[uuid.UUID]user.User),
			changes: make(map[uuid.UUID]change.ChangeRequest),
		},
		failures: make(map[Op]error),
	}
}

// InTx runs fn as one unit of work. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	err := fn(context.WithValue(ctx, txKey{}, s))
	if err == nil {
		err = s.fail(OpCommit)
	}
	if err != nil {
		s.data = snapshot
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn under the store lock unless ctx already holds it through InTx.
func (s *Store) do(ctx context.Context, op Op, fn func() error) error {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.fail(op); err != nil {
		return err
	}
	return fn()
}

func (s *Store) fail(op Op) error {
	if s.unavailable != nil {
		return s.unavailable
	}
	if err, ok := s.failures[op]; ok {
		return err
	}
	return nil
}

// FailOn makes every later op return err. A nil err removes the failure.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// SetUnavailable fails every operation with err until called with nil.
func (s *Store) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = err
}

// Stats reports committed and rolled back transactions.
func (s *Store) Stats() (commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.rollbacks
}

// PutUser stores u directly, bypassing failures.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID()] = u
}

// PutChange stores c as is, whatever its status.
func (s *Store) PutChange(c change.ChangeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.changes[c.ID()] = c
}

// JournalEntries returns the committed status change records in write order.
func (s *Store) JournalEntries() []change.StatusChangedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]change.StatusChangedPayload(nil), s.data.journal...)
}

func (s *Store) Changes() change.Repository {
	return &changeRepository{s: s}
}

func (s *Store) Comments() comment.Repository {
	return &commentRepository{s: s}
}

func (s *Store) Users() user.Repository {
	return &userRepository{s: s}
}

func (s *Store) Journal() *Journal {
	return &Journal{s: s}
}

func (s *Store) userRef(id uuid.UUID) change.UserRef {
	ref := change.UserRef{ID: id}
	if u, ok := s.data.users[id]; ok {
		ref.Name = u.Name()
		ref.Email = u.Email()
	}
	return ref
}

// resolve fills requester and approver display data from the users table.
func (s *Store) resolve(c change.ChangeRequest) change.ChangeRequest {
	var approver *change.UserRef
	if id := c.ApproverID(); id != nil {
		ref := s.userRef(*id)
		approver = &ref
	}
	return change.Hydrate(
		c.ID(),
		c.Title(),
		c.Description(),
		c.Status(),
		c.Priority(),
		c.Impact(),
		c.Type(),
		c.SystemsAffected(),
		s.userRef(c.RequestedBy().ID),
		approver,
		c.PlannedStart(),
		c.PlannedEnd(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
}

func (s *Store) sortedChanges(params *change.FindParams) []change.ChangeRequest {
	out := make([]change.ChangeRequest, 0, len(s.data.changes))
	for _, c := range s.data.changes {
		if params.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}
