package changes

import (
	"embed"

	"github.com/jackc/pgx/v5"

	"github.com/richardissailing/fantastic-spoon/modules/changes/handlers"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/persistence"
	"github.com/richardissailing/fantastic-spoon/modules/changes/presentation/controllers"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	corepersistence "github.com/richardissailing/fantastic-spoon/modules/core/infrastructure/persistence"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

type ModuleOptions struct {
	// OutboxTable receives a row per committed status change.
	OutboxTable pgx.Identifier
	// StatsCache is optional.
	StatsCache services.SnapshotCache
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	if len(opts.OutboxTable) == 0 {
		opts.OutboxTable = pgx.Identifier{"public", "change_outbox"}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)

	tx := composables.NewPoolTransactor(app.DB())
	changeRepo := persistence.NewChangeRepository()
	commentRepo := persistence.NewCommentRepository()
	userRepo := corepersistence.NewUserRepository()

	lifecycleService := services.NewLifecycleService(
		tx,
		changeRepo,
		commentRepo,
		userRepo,
		persistence.NewOutboxJournal(m.options.OutboxTable),
		app.EventPublisher(),
	)
	changeService := services.NewChangeService(tx, changeRepo, userRepo, lifecycleService, app.EventPublisher())
	app.RegisterServices(
		lifecycleService,
		changeService,
		services.NewCommentService(tx, changeService, commentRepo, userRepo, app.EventPublisher()),
		services.NewStatusQueryService(changeRepo, m.options.StatsCache),
	)

	app.RegisterControllers(
		controllers.NewChangeAPIController(app),
		controllers.NewStatusAPIController(app),
	)

	handlers.RegisterChangeEventHandlers(app)
	return handlers.RegisterOutboxEventHandlers(app)
}

func (m *Module) Name() string {
	return "changes"
}
