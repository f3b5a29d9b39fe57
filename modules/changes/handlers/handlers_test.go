package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/handlers"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/memory"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type countingCache struct {
	invalidations int
	keys          []string
}

func (c *countingCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (c *countingCache) Set(context.Context, string, any) error         { return nil }
func (c *countingCache) Invalidate(_ context.Context, keys ...string) error {
	c.invalidations++
	c.keys = keys
	return nil
}

func TestChangeEventsHandler_InvalidatesSnapshots(t *testing.T) {
	t.Parallel()

	cache := &countingCache{}
	queries := services.NewStatusQueryService(memory.New().Changes(), cache)
	bus := eventbus.NewEventPublisher(quietLogger())
	handlers.NewChangeEventsHandler(queries, quietLogger()).Subscribe(bus)

	c := change.New("t", "d", change.PriorityLow, change.ImpactLow, uuid.New())
	bus.Publish(&change.StatusChangedEvent{Change: c, PreviousStatus: change.StatusPending})
	bus.Publish(&change.CreatedEvent{Change: c})

	assert.Equal(t, 2, cache.invalidations)
	assert.Contains(t, cache.keys, "dashboard")
	assert.Contains(t, cache.keys, "report:thisMonth")
}

func payloadFor(t *testing.T, status change.Status) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(change.StatusChangedPayload{
		EventID:        uuid.New(),
		ChangeID:       uuid.New(),
		PreviousStatus: change.StatusInProgress,
		Status:         status,
	})
	require.NoError(t, err)
	return raw
}

func TestOutboxEventsHandler_DeliversOnce(t *testing.T) {
	t.Parallel()

	var delivered []change.StatusChangedPayload
	h, err := handlers.NewOutboxEventsHandler(quietLogger(), func(p change.StatusChangedPayload) error {
		delivered = append(delivered, p)
		return nil
	})
	require.NoError(t, err)

	meta := &outbox.Meta{Topic: change.TopicStatusChanged, EventID: uuid.New()}
	payload := payloadFor(t, change.StatusCompleted)
	require.NoError(t, h.OnOutboxMessage(meta, payload))
	require.NoError(t, h.OnOutboxMessage(meta, payload))

	require.Len(t, delivered, 1)
	assert.Equal(t, change.StatusCompleted, delivered[0].Status)
}

func TestOutboxEventsHandler_IgnoresOtherTopicsAndBadPayloads(t *testing.T) {
	t.Parallel()

	calls := 0
	h, err := handlers.NewOutboxEventsHandler(quietLogger(), func(change.StatusChangedPayload) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.OnOutboxMessage(&outbox.Meta{Topic: "other"}, payloadFor(t, change.StatusApproved)))
	require.NoError(t, h.OnOutboxMessage(&outbox.Meta{Topic: change.TopicStatusChanged, EventID: uuid.New()}, json.RawMessage(`{`)))
	require.NoError(t, h.OnOutboxMessage(nil, nil))
	assert.Zero(t, calls)
}

func TestOutboxEventsHandler_FailureIsRetried(t *testing.T) {
	t.Parallel()

	failure := errors.New("mail relay down")
	fail := true
	calls := 0
	h, err := handlers.NewOutboxEventsHandler(quietLogger(), func(change.StatusChangedPayload) error {
		calls++
		if fail {
			return failure
		}
		return nil
	})
	require.NoError(t, err)

	bus := eventbus.NewEventPublisher(quietLogger())
	bus.Subscribe(h.OnOutboxMessage)

	meta := &outbox.Meta{Topic: change.TopicStatusChanged, EventID: uuid.New()}
	payload := payloadFor(t, change.StatusCancelled)
	require.ErrorIs(t, bus.PublishE(meta, payload), failure)

	fail = false
	require.NoError(t, bus.PublishE(meta, payload))
	require.NoError(t, bus.PublishE(meta, payload))
	assert.Equal(t, 2, calls)
}

func TestOutboxEventsHandler_ConcurrentRedeliveryNotifiesOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	h, err := handlers.NewOutboxEventsHandler(quietLogger(), func(change.StatusChangedPayload) error {
		calls.Add(1)
		<-release
		return nil
	})
	require.NoError(t, err)

	meta := &outbox.Meta{Topic: change.TopicStatusChanged, EventID: uuid.New()}
	payload := payloadFor(t, change.StatusApproved)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.OnOutboxMessage(meta, payload))
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
