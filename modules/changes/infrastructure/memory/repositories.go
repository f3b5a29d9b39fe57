package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
)

type changeRepository struct {
	s *Store
}

func (r *changeRepository) List(ctx context.Context, params *change.FindParams) ([]change.ChangeRequest, error) {
	var out []change.ChangeRequest
	err := r.s.do(ctx, OpReadChange, func() error {
		items := r.s.sortedChanges(params)
		if params != nil {
			items = page(items, params.Limit, params.Offset)
		}
		out = make([]change.ChangeRequest, 0, len(items))
		for _, c := range items {
			out = append(out, r.s.resolve(c))
		}
		return nil
	})
	return out, err
}

func (r *changeRepository) Count(ctx context.Context, params *change.FindParams) (int64, error) {
	var n int64
	err := r.s.do(ctx, OpReadChange, func() error {
		n = int64(len(r.s.sortedChanges(params)))
		return nil
	})
	return n, err
}

func (r *changeRepository) CountByStatus(ctx context.Context, params *change.FindParams) (map[change.Status]int64, error) {
	out := make(map[change.Status]int64, len(change.Statuses))
	err := r.s.do(ctx, OpReadChange, func() error {
		for _, s := range change.Statuses {
			out[s] = 0
		}
		for _, c := range r.s.sortedChanges(params) {
			out[c.Status()]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *changeRepository) CountByPriority(ctx context.Context, params *change.FindParams) (map[change.Priority]int64, error) {
	out := make(map[change.Priority]int64, len(change.Priorities))
	err := r.s.do(ctx, OpReadChange, func() error {
		for _, p := range change.Priorities {
			out[p] = 0
		}
		for _, c := range r.s.sortedChanges(params) {
			out[c.Priority()]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *changeRepository) GetByID(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	return r.get(ctx, OpReadChange, id)
}

// GetForUpdate needs no extra locking: transactions already run one at a time.
func (r *changeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	return r.get(ctx, OpLockChange, id)
}

func (r *changeRepository) get(ctx context.Context, op Op, id uuid.UUID) (change.ChangeRequest, error) {
	var out change.ChangeRequest
	err := r.s.do(ctx, op, func() error {
		c, ok := r.s.data.changes[id]
		if !ok {
			return change.ErrNotFound
		}
		out = r.s.resolve(c)
		return nil
	})
	return out, err
}

func (r *changeRepository) Create(ctx context.Context, c change.ChangeRequest) (change.ChangeRequest, error) {
	var out change.ChangeRequest
	err := r.s.do(ctx, OpCreateChange, func() error {
		r.s.data.changes[c.ID()] = c
		out = r.s.resolve(c)
		return nil
	})
	return out, err
}

func (r *changeRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status change.Status,
	approvedBy *uuid.UUID,
	updatedAt time.Time,
) error {
	return r.s.do(ctx, OpUpdateStatus, func() error {
		c, ok := r.s.data.changes[id]
		if !ok {
			return change.ErrNotFound
		}
		var approver *change.UserRef
		if approvedBy != nil {
			approver = &change.UserRef{ID: *approvedBy}
		}
		r.s.data.changes[id] = change.Hydrate(
			c.ID(),
			c.Title(),
			c.Description(),
			status,
			c.Priority(),
			c.Impact(),
			c.Type(),
			c.SystemsAffected(),
			c.RequestedBy(),
			approver,
			c.PlannedStart(),
			c.PlannedEnd(),
			c.CreatedAt(),
			updatedAt,
		)
		return nil
	})
}

type commentRepository struct {
	s *Store
}

func (r *commentRepository) Create(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	var out comment.Comment
	err := r.s.do(ctx, OpCreateComment, func() error {
		if _, ok := r.s.data.changes[c.ChangeID()]; !ok {
			return change.ErrNotFound
		}
		r.s.data.comments = append(r.s.data.comments, c)
		out = r.s.resolveComment(c)
		return nil
	})
	return out, err
}

func (r *commentRepository) ListByChange(ctx context.Context, changeID uuid.UUID) ([]comment.Comment, error) {
	var out []comment.Comment
	err := r.s.do(ctx, OpReadComments, func() error {
		for _, c := range r.s.data.comments {
			if c.ChangeID() == changeID {
				out = append(out, r.s.resolveComment(c))
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		})
		return nil
	})
	return out, err
}

func (s *Store) resolveComment(c comment.Comment) comment.Comment {
	return comment.Hydrate(c.ID(), c.ChangeID(), c.Content(), s.userRef(c.Author().ID), c.CreatedAt())
}

type userRepository struct {
	s *Store
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var out user.User
	err := r.s.do(ctx, OpReadUser, func() error {
		u, ok := r.s.data.users[id]
		if !ok {
			return user.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var out user.User
	err := r.s.do(ctx, OpReadUser, func() error {
		email = strings.ToLower(strings.TrimSpace(email))
		for _, u := range r.s.data.users {
			if u.Email() == email {
				out = u
				return nil
			}
		}
		return user.ErrNotFound
	})
	return out, err
}

func (r *userRepository) List(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	var out []user.User
	err := r.s.do(ctx, OpReadUser, func() error {
		for _, u := range r.s.data.users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Name() == out[j].Name() {
				return out[i].ID().String() < out[j].ID().String()
			}
			return out[i].Name() < out[j].Name()
		})
		if params != nil {
			out = page(out, params.Limit, params.Offset)
		}
		return nil
	})
	return out, err
}

func (r *userRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.s.do(ctx, OpCreateUser, func() error {
		for _, existing := range r.s.data.users {
			if existing.Email() == u.Email() {
				return user.ErrEmailTaken
			}
		}
		r.s.data.users[u.ID()] = u
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// Journal keeps status change records alongside the data they describe.
type Journal struct {
	s *Store
}

func (j *Journal) StatusChanged(ctx context.Context, evt change.StatusChangedEvent) error {
	return j.s.do(ctx, OpJournal, func() error {
		j.s.data.journal = append(j.s.data.journal, evt.Payload(uuid.New()))
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
