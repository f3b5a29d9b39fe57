package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

var (
	ErrNotFound   = serrors.NewError("USER_NOT_FOUND", "user not found", "Users.Errors.NotFound")
	ErrEmailTaken = serrors.NewError("USER_EMAIL_TAKEN", "email is already registered", "Users.Errors.EmailTaken")
)

type FindParams struct {
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, params *FindParams) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
}
