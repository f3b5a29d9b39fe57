package modules

import (
	"github.com/richardissailing/fantastic-spoon/modules/changes"
	"github.com/richardissailing/fantastic-spoon/modules/core"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
)

// BuiltInModules returns the modules every binary registers. changes depends
// on the users table owned by core, so core comes first.
func BuiltInModules(changesOpts *changes.ModuleOptions) []application.Module {
	return []application.Module{
		core.NewModule(),
		changes.NewModule(changesOpts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
