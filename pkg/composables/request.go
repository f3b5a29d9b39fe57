package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/pkg/constants"
)

var (
	ErrNoActor = errors.New("actor not found in context")
)

// UseLogger returns the request logger from the context, or an entry on the
// standard logger when called outside of a request.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// WithActor stores the id of the authenticated user performing the request.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actorID)
}

func UseActor(ctx context.Context) (uuid.UUID, error) {
	actorID, ok := ctx.Value(constants.ActorKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, ErrNoActor
	}
	return actorID, nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

func UseRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(constants.RequestIDKey).(string)
	return requestID
}
