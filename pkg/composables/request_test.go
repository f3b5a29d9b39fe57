package composables

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseActor(t *testing.T) {
	t.Parallel()

	_, err := UseActor(context.Background())
	require.ErrorIs(t, err, ErrNoActor)

	_, err = UseActor(WithActor(context.Background(), uuid.Nil))
	require.ErrorIs(t, err, ErrNoActor)

	id := uuid.New()
	got, err := UseActor(WithActor(context.Background(), id))
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestUseLogger_FallsBackOutsideRequests(t *testing.T) {
	t.Parallel()

	require.NotNil(t, UseLogger(context.Background()))

	entry := logrus.NewEntry(logrus.New()).WithField("request-id", "abc")
	require.Same(t, entry, UseLogger(WithLogger(context.Background(), entry)))
}

func TestUsePool_Missing(t *testing.T) {
	t.Parallel()

	_, err := UsePool(context.Background())
	require.ErrorIs(t, err, ErrNoPool)

	_, err = UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
