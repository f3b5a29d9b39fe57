package core

import (
	"embed"

	"github.com/richardissailing/fantastic-spoon/modules/core/infrastructure/persistence"
	"github.com/richardissailing/fantastic-spoon/modules/core/presentation/controllers"
	"github.com/richardissailing/fantastic-spoon/modules/core/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)

	app.RegisterServices(
		services.NewUserService(persistence.NewUserRepository()),
	)
	app.RegisterControllers(
		controllers.NewUserAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
