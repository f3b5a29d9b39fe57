package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

type CommentService struct {
	tx        composables.Transactor
	changes   *ChangeService
	comments  comment.Repository
	users     user.Repository
	publisher eventbus.EventBus
}

func NewCommentService(
	tx composables.Transactor,
	changes *ChangeService,
	comments comment.Repository,
	users user.Repository,
	publisher eventbus.EventBus,
) *CommentService {
	return &CommentService{
		tx:        tx,
		changes:   changes,
		comments:  comments,
		users:     users,
		publisher: publisher,
	}
}

// List returns the thread of changeID, oldest first.
func (s *CommentService) List(ctx context.Context, changeID uuid.UUID) ([]comment.Comment, error) {
	if _, err := s.changes.GetByID(ctx, changeID); err != nil {
		return nil, err
	}
	items, err := s.comments.ListByChange(ctx, changeID)
	if err != nil {
		return nil, lifecycle.Storage("list comments", err)
	}
	return items, nil
}

// Add appends a free-form comment that is not tied to a transition.
func (s *CommentService) Add(ctx context.Context, changeID, actorID uuid.UUID, content string) (comment.Comment, error) {
	var created comment.Comment
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if _, err := requireActor(txCtx, s.users, actorID); err != nil {
			return err
		}
		if _, err := s.changes.GetByID(txCtx, changeID); err != nil {
			return err
		}
		c, err := comment.New(changeID, actorID, content)
		if err != nil {
			return err
		}
		created, err = s.comments.Create(txCtx, c)
		if err != nil {
			return lifecycle.Storage("create comment", err)
		}
		return nil
	})
	if err != nil {
		return comment.Comment{}, classify("commit comment", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(&comment.AddedEvent{Comment: created, OccurredAt: time.Now().UTC()})
	}
	return created, nil
}
