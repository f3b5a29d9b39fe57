package outbox

import "context"

// Dispatcher delivers a claimed message. A returned error schedules a retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

type DispatcherFunc func(ctx context.Context, msg DispatchedMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	return f(ctx, msg)
}
