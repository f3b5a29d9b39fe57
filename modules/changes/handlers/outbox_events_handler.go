package handlers

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
)

const seenEventsSize = 4096

var notificationsTotal = sync.OnceValue(func() *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "changes",
		Name:      "stakeholder_notifications_total",
		Help:      "Status change notifications delivered from the outbox by destination status and result.",
	}, []string{"status", "result"})
})

// OutboxEventsHandler consumes status changes relayed from the outbox and
// notifies stakeholders. Delivery is at least once, so repeats are dropped by EventID.
type OutboxEventsHandler struct {
	logger *logrus.Logger
	seen   *lru.Cache[uuid.UUID, struct{}]
	notify func(change.StatusChangedPayload) error
}

func NewOutboxEventsHandler(logger *logrus.Logger, notify func(change.StatusChangedPayload) error) (*OutboxEventsHandler, error) {
	seen, err := lru.New[uuid.UUID, struct{}](seenEventsSize)
	if err != nil {
		return nil, err
	}
	h := &OutboxEventsHandler{logger: logger, seen: seen, notify: notify}
	if h.notify == nil {
		h.notify = h.logNotification
	}
	return h, nil
}

func RegisterOutboxEventHandlers(app application.Application) error {
	handler, err := NewOutboxEventsHandler(app.Logger(), nil)
	if err != nil {
		return err
	}
	app.EventPublisher().Subscribe(handler.OnOutboxMessage)
	return nil
}

// OnOutboxMessage returns an error only when the notification should be retried.
func (h *OutboxEventsHandler) OnOutboxMessage(meta *outbox.Meta, payload json.RawMessage) error {
	if h == nil || meta == nil || meta.Topic != change.TopicStatusChanged {
		return nil
	}
	// Claimed before delivery so concurrent redeliveries notify once.
	if found, _ := h.seen.ContainsOrAdd(meta.EventID, struct{}{}); found {
		notificationsTotal().WithLabelValues("", "duplicate").Inc()
		return nil
	}

	var evt change.StatusChangedPayload
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.WithError(err).WithField("event_id", meta.EventID).Error("dropping malformed status change payload")
		notificationsTotal().WithLabelValues("", "malformed").Inc()
		return nil
	}

	if err := h.notify(evt); err != nil {
		h.seen.Remove(meta.EventID)
		notificationsTotal().WithLabelValues(string(evt.Status), "failed").Inc()
		return err
	}
	notificationsTotal().WithLabelValues(string(evt.Status), "delivered").Inc()
	return nil
}

func (h *OutboxEventsHandler) logNotification(evt change.StatusChangedPayload) error {
	h.logger.WithFields(logrus.Fields{
		"change_id": evt.ChangeID,
		"title":     evt.Title,
		"from":      evt.PreviousStatus,
		"to":        evt.Status,
		"actor_id":  evt.ActorID,
	}).Info("stakeholders notified of status change")
	return nil
}
