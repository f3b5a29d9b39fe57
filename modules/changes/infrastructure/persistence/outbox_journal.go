package persistence

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
)

// OutboxJournal records status changes in the outbox table using the
// transaction carried by ctx, so a row exists exactly when the change commits.
type OutboxJournal struct {
	publisher outbox.Publisher
	table     pgx.Identifier
}

func NewOutboxJournal(table pgx.Identifier) *OutboxJournal {
	return &OutboxJournal{
		publisher: outbox.NewPublisher(),
		table:     table,
	}
}

func (j *OutboxJournal) StatusChanged(ctx context.Context, evt change.StatusChangedEvent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	eventID := uuid.New()
	payload, err := json.Marshal(evt.Payload(eventID))
	if err != nil {
		return errors.Wrap(err, "failed to encode status change")
	}
	_, err = j.publisher.Enqueue(ctx, tx, j.table, outbox.Message{
		AggregateID: evt.Change.ID(),
		Topic:       change.TopicStatusChanged,
		EventID:     eventID,
		Payload:     payload,
	})
	return err
}
