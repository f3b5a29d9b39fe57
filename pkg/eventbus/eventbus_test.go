package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/pkg/logging"
)

type moved struct {
	to string
}

type commented struct {
	body string
}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestPublish_NoMatchingSubscribers(t *testing.T) {
	t.Parallel()

	log, buf := bufferedLogger(logrus.WarnLevel)
	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *moved) {
		t.Error("should not be called")
	})
	bus.Publish(&commented{body: "hi"})

	require.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublish_DeliversToMatchingHandlers(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got []string
	bus.Subscribe(func(e *moved) { got = append(got, "a:"+e.to) })
	bus.Subscribe(func(e *moved) { got = append(got, "b:"+e.to) })
	bus.Subscribe(func(e *commented) { got = append(got, "c:"+e.body) })

	bus.Publish(&moved{to: "IN_PROGRESS"})

	require.Equal(t, []string{"a:IN_PROGRESS", "b:IN_PROGRESS"}, got)
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()

	require.True(t, MatchSignature(func(e *moved) {}, []any{&moved{}}))
	require.False(t, MatchSignature(func(e *moved) {}, []any{&commented{}}))
	require.False(t, MatchSignature(func(e *moved) {}, []any{}))
	require.False(t, MatchSignature(func(e *moved) {}, []any{&moved{}, &moved{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(e *moved) {}, []any{nil}))
	require.False(t, MatchSignature("not a func", []any{}))
}

func TestPublish_PanicIsRecoveredAndLogged(t *testing.T) {
	t.Parallel()

	log, buf := bufferedLogger(logrus.ErrorLevel)
	bus := NewEventPublisher(log)
	secondCalled := false
	bus.Subscribe(func(e *moved) { panic("boom") })
	bus.Subscribe(func(e *moved) { secondCalled = true })

	require.NotPanics(t, func() { bus.Publish(&moved{to: "DONE"}) })
	require.Contains(t, buf.String(), "panicked")
	require.Contains(t, buf.String(), "boom")
	require.True(t, secondCalled)
}

func TestPublishE(t *testing.T) {
	t.Parallel()

	t.Run("no subscribers", func(t *testing.T) {
		bus := NewEventPublisher(nil)
		require.ErrorIs(t, bus.PublishE(&moved{}), ErrNoSubscribers)
	})

	t.Run("joins handler errors", func(t *testing.T) {
		bus := NewEventPublisher(nil)
		errA := errors.New("a failed")
		bus.Subscribe(func(e *moved) error { return errA })
		bus.Subscribe(func(e *moved) error { return nil })
		bus.Subscribe(func(e *moved) { panic("b") })

		err := bus.PublishE(&moved{})
		require.ErrorIs(t, err, errA)
		require.Contains(t, err.Error(), "panicked")
	})

	t.Run("rejects non-error returns", func(t *testing.T) {
		bus := NewEventPublisher(nil)
		bus.Subscribe(func(e *moved) int { return 1 })
		require.ErrorIs(t, bus.PublishE(&moved{}), ErrInvalidHandlerReturn)
	})
}

func TestUnsubscribeAndClear(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(nil)
	handler := func(e *moved) {}
	bus.Subscribe(handler)
	bus.Subscribe(func(e *commented) {})
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	require.Zero(t, bus.SubscribersCount())
}
