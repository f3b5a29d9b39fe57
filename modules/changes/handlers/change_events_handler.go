package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
)

// ChangeEventsHandler keeps the status snapshots fresh after writes.
type ChangeEventsHandler struct {
	queries *services.StatusQueryService
	logger  *logrus.Logger
}

func NewChangeEventsHandler(queries *services.StatusQueryService, logger *logrus.Logger) *ChangeEventsHandler {
	return &ChangeEventsHandler{queries: queries, logger: logger}
}

func RegisterChangeEventHandlers(app application.Application) {
	handler := NewChangeEventsHandler(
		app.Service(services.StatusQueryService{}).(*services.StatusQueryService),
		app.Logger(),
	)
	handler.Subscribe(app.EventPublisher())
}

type subscriber interface {
	Subscribe(handler any)
}

func (h *ChangeEventsHandler) Subscribe(bus subscriber) {
	bus.Subscribe(h.onStatusChanged)
	bus.Subscribe(h.onCreated)
	bus.Subscribe(h.onCommentAdded)
}

func (h *ChangeEventsHandler) onStatusChanged(event *change.StatusChangedEvent) {
	if h == nil || event == nil {
		return
	}
	h.queries.Invalidate(context.Background())
	h.logger.WithFields(logrus.Fields{
		"change_id": event.Change.ID(),
		"from":      event.PreviousStatus,
		"to":        event.Change.Status(),
		"actor_id":  event.ActorID,
	}).Debug("status snapshots invalidated")
}

func (h *ChangeEventsHandler) onCreated(event *change.CreatedEvent) {
	if h == nil || event == nil {
		return
	}
	h.queries.Invalidate(context.Background())
}

func (h *ChangeEventsHandler) onCommentAdded(event *comment.AddedEvent) {
	if h == nil || event == nil {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"change_id":  event.Comment.ChangeID(),
		"comment_id": event.Comment.ID(),
	}).Debug("comment added")
}
