package commands

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richardissailing/fantastic-spoon/modules"
	"github.com/richardissailing/fantastic-spoon/modules/changes"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/configuration"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
	"github.com/richardissailing/fantastic-spoon/pkg/outbox"
)

// NewApplicationWithDefaults connects to the configured database and registers
// the built-in modules. The caller owns the returned pool.
func NewApplicationWithDefaults() (application.Application, *pgxpool.Pool, error) {
	conf := configuration.Use()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}

	app, err := NewApplication(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return app, pool, nil
}

func NewApplication(pool *pgxpool.Pool) (application.Application, error) {
	conf := configuration.Use()
	table, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		return nil, errors.Wrap(err, "invalid OUTBOX_TABLE")
	}
	logger := conf.Logger()
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(&changes.ModuleOptions{OutboxTable: table})...); err != nil {
		return nil, errors.Wrap(err, "failed to load modules")
	}
	return app, nil
}
