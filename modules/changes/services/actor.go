package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
)

// requireActor loads the acting user. A missing or unknown id is a validation error.
func requireActor(ctx context.Context, users user.Repository, actorID uuid.UUID) (user.User, error) {
	if actorID == uuid.Nil {
		return user.User{}, lifecycle.Validationf("actor is required")
	}
	u, err := users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, lifecycle.Validationf("unknown actor %s", actorID)
		}
		return user.User{}, lifecycle.Storage("load actor", err)
	}
	return u, nil
}

// classify keeps taxonomy errors as they are and marks anything else as a storage failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if lifecycle.KindOf(err) != lifecycle.KindStorage || errors.Is(err, lifecycle.ErrStorage) {
		return err
	}
	return lifecycle.Storage(op, err)
}
