package persistence

import (
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/modules/core/infrastructure/persistence/models"
)

func ToDomainUser(dbUser *models.User) (user.User, error) {
	id, err := uuid.Parse(dbUser.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "failed to parse user id")
	}
	role, err := user.ParseRole(dbUser.Role)
	if err != nil {
		return user.User{}, err
	}
	return user.Hydrate(id, dbUser.Name, dbUser.Email, role, dbUser.CreatedAt), nil
}

func ToDBUser(u user.User) *models.User {
	return &models.User{
		ID:        u.ID().String(),
		Name:      u.Name(),
		Email:     u.Email(),
		Role:      string(u.Role()),
		CreatedAt: u.CreatedAt(),
	}
}
