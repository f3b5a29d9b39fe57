package commands

import (
	"context"

	changeseed "github.com/richardissailing/fantastic-spoon/modules/changes/seed"
	coreseed "github.com/richardissailing/fantastic-spoon/modules/core/seed"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/configuration"
)

// SeedDatabase creates the test users and sample change requests in one transaction.
func SeedDatabase(ctx context.Context) error {
	app, pool, err := NewApplicationWithDefaults()
	if err != nil {
		return err
	}
	defer pool.Close()

	seeds := []coreseed.SeedFunc{
		coreseed.UserSeedFunc(coreseed.TestUser, coreseed.TestManager),
		changeseed.ChangeSeedFunc(coreseed.TestUser.Email, changeseed.SampleChanges...),
	}

	ctx = composables.WithLogger(ctx, configuration.Use().Logger().WithField("command", "seed"))
	ctx = composables.WithPool(ctx, pool)
	return composables.InTx(ctx, func(txCtx context.Context) error {
		for _, seed := range seeds {
			if err := seed(txCtx, app); err != nil {
				return err
			}
		}
		return nil
	})
}
