package eventbus

import (
	"context"

	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
)

// Dispatcher republishes outbox messages on the in-process bus as
// (*outbox.Meta, json.RawMessage). Handler errors and panics make the relay retry.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func New(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta := msg.Meta
	return d.bus.PublishE(&meta, msg.Payload)
}
