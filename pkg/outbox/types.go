package outbox

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is one row of an outbox table, written in the same transaction as the
// state change it announces.
type Message struct {
	AggregateID uuid.UUID
	Topic       string
	EventID     uuid.UUID
	Payload     json.RawMessage
}

// Meta travels with every dispatched message so consumers can deduplicate on EventID.
type Meta struct {
	Table       pgx.Identifier
	AggregateID uuid.UUID
	Topic       string
	EventID     uuid.UUID
	Sequence    int64
	Attempts    int
}

type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}

func TableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}
