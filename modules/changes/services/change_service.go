package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

const maxListLimit = 500

// ChangeService covers submission and reads. Status changes go through LifecycleService.
type ChangeService struct {
	tx        composables.Transactor
	changes   change.Repository
	users     user.Repository
	lifecycle *LifecycleService
	publisher eventbus.EventBus
}

func NewChangeService(
	tx composables.Transactor,
	changes change.Repository,
	users user.Repository,
	lifecycle *LifecycleService,
	publisher eventbus.EventBus,
) *ChangeService {
	return &ChangeService{
		tx:        tx,
		changes:   changes,
		users:     users,
		lifecycle: lifecycle,
		publisher: publisher,
	}
}

func (s *ChangeService) GetByID(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	if id == uuid.Nil {
		return change.ChangeRequest{}, lifecycle.Validationf("change id is required")
	}
	c, err := s.changes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, change.ErrNotFound) {
			return change.ChangeRequest{}, lifecycle.NotFoundf("change request %s", id)
		}
		return change.ChangeRequest{}, lifecycle.Storage("load change request", err)
	}
	return c, nil
}

// List returns requests newest first. The limit is capped at 500.
func (s *ChangeService) List(ctx context.Context, params *change.FindParams) ([]change.ChangeRequest, error) {
	if params == nil {
		params = &change.FindParams{}
	}
	if params.Limit <= 0 || params.Limit > maxListLimit {
		params.Limit = maxListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	items, err := s.changes.List(ctx, params)
	if err != nil {
		return nil, lifecycle.Storage("list change requests", err)
	}
	return items, nil
}

// Create submits a new request as PENDING on behalf of actorID.
func (s *ChangeService) Create(ctx context.Context, actorID uuid.UUID, dto *change.CreateDTO) (change.ChangeRequest, error) {
	if dto == nil {
		return change.ChangeRequest{}, lifecycle.Validationf("missing request body")
	}
	if errs, ok := dto.Ok(); !ok {
		return change.ChangeRequest{}, errs
	}

	var created change.ChangeRequest
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if _, err := requireActor(txCtx, s.users, actorID); err != nil {
			return err
		}
		entity, err := dto.ToEntity(actorID)
		if err != nil {
			return err
		}
		created, err = s.changes.Create(txCtx, entity)
		if err != nil {
			return lifecycle.Storage("create change request", err)
		}
		return nil
	})
	if err != nil {
		return change.ChangeRequest{}, classify("commit change request", err)
	}

	composables.UseLogger(ctx).WithField("change_id", created.ID()).Info("change request submitted")
	s.publish(created, actorID)
	return created, nil
}

// Copy submits a PENDING duplicate of id. The original requester is kept.
func (s *ChangeService) Copy(ctx context.Context, id, actorID uuid.UUID) (change.ChangeRequest, error) {
	var created change.ChangeRequest
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if _, err := requireActor(txCtx, s.users, actorID); err != nil {
			return err
		}
		src, err := s.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		created, err = s.changes.Create(txCtx, src.Copy())
		if err != nil {
			return lifecycle.Storage("copy change request", err)
		}
		return nil
	})
	if err != nil {
		return change.ChangeRequest{}, classify("commit change request copy", err)
	}

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"change_id": created.ID(),
		"source_id": id,
	}).Info("change request copied")
	s.publish(created, actorID)
	return created, nil
}

// Cancel closes the request from any open status with an audit comment.
func (s *ChangeService) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (TransitionResult, error) {
	return s.lifecycle.Cancel(ctx, id, actorID, reason)
}

func (s *ChangeService) publish(c change.ChangeRequest, actorID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(&change.CreatedEvent{
		Change:     c,
		ActorID:    actorID,
		OccurredAt: c.CreatedAt(),
	})
}
