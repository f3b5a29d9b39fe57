package board

import (
	"context"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
)

// Local drives the board against in-process services on behalf of one actor.
type Local struct {
	Lifecycle *services.LifecycleService
	Changes   *services.ChangeService
	ActorID   uuid.UUID
}

func (l *Local) Transition(ctx context.Context, id uuid.UUID, to change.Status, comment string) (change.ChangeRequest, error) {
	res, err := l.Lifecycle.Transition(ctx, services.TransitionCommand{
		ChangeID: id,
		Status:   to,
		ActorID:  l.ActorID,
		Comment:  comment,
	})
	if err != nil {
		return change.ChangeRequest{}, err
	}
	return res.Change, nil
}

func (l *Local) List(ctx context.Context) ([]change.ChangeRequest, error) {
	return l.Changes.List(ctx, nil)
}
