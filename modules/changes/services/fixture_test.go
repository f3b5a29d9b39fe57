package services_test

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/memory"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

type fixture struct {
	store     *memory.Store
	bus       eventbus.EventBusWithError
	lifecycle *services.LifecycleService
	changes   *services.ChangeService
	comments  *services.CommentService
	queries   *services.StatusQueryService
	requester user.User
	manager   user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.New()
	bus := eventbus.NewEventPublisher(logger)
	lc := services.NewLifecycleService(store, store.Changes(), store.Comments(), store.Users(), store.Journal(), bus)
	changes := services.NewChangeService(store, store.Changes(), store.Users(), lc, bus)

	f := &fixture{
		store:     store,
		bus:       bus,
		lifecycle: lc,
		changes:   changes,
		comments:  services.NewCommentService(store, changes, store.Comments(), store.Users(), bus),
		queries:   services.NewStatusQueryService(store.Changes(), nil),
		requester: user.New("Rita Requester", "rita@example.com", user.RoleUser),
		manager:   user.New("Max Manager", "max@example.com", user.RoleManager),
	}
	store.PutUser(f.requester)
	store.PutUser(f.manager)
	return f
}

// putChange stores a request directly in status, approved by the manager when approved is set.
func (f *fixture) putChange(status change.Status, approved bool) change.ChangeRequest {
	c := change.New("Upgrade load balancer", "swap the LB pool", change.PriorityMedium, change.ImpactHigh, f.requester.ID(),
		change.WithType("INFRASTRUCTURE"))
	var approver *change.UserRef
	if approved {
		approver = &change.UserRef{ID: f.manager.ID()}
	}
	c = change.Hydrate(
		c.ID(), c.Title(), c.Description(), status, c.Priority(), c.Impact(), c.Type(), c.SystemsAffected(),
		c.RequestedBy(), approver, nil, nil, c.CreatedAt(), c.UpdatedAt(),
	)
	f.store.PutChange(c)
	return c
}

func (f *fixture) putChangeAt(status change.Status, priority change.Priority, createdAt time.Time) change.ChangeRequest {
	c := change.Hydrate(
		uuid.New(), "t-"+createdAt.Format(time.RFC3339Nano), "d", status, priority, change.ImpactLow, "NORMAL", nil,
		change.UserRef{ID: f.requester.ID()}, nil, nil, nil, createdAt, createdAt,
	)
	f.store.PutChange(c)
	return c
}
