package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/modules/core/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
)

// SeedFunc populates sample data. Seeds must be safe to run more than once.
type SeedFunc func(ctx context.Context, app application.Application) error

var (
	TestUser = user.CreateDTO{
		Name:  "Test User",
		Email: "test@example.com",
		Role:  string(user.RoleUser),
	}
	TestManager = user.CreateDTO{
		Name:  "Test Manager",
		Email: "manager@example.com",
		Role:  string(user.RoleManager),
	}
)

func UserSeedFunc(dtos ...user.CreateDTO) SeedFunc {
	return func(ctx context.Context, app application.Application) error {
		svc := app.Service(services.UserService{}).(*services.UserService)
		logger := composables.UseLogger(ctx)
		for _, dto := range dtos {
			d := dto
			u, err := svc.GetOrCreate(ctx, &d)
			if err != nil {
				return errors.Wrapf(err, "failed to seed user %s", d.Email)
			}
			logger.WithField("email", u.Email()).Info("user ready")
		}
		return nil
	}
}
