package modules

import (
	"github.com/sennetconsortium/senotype-editor/modules/senotype"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
)

// BuiltInModules returns the modules every server registers.
func BuiltInModules(opts *senotype.ModuleOptions) []application.Module {
	return []application.Module{
		senotype.NewModule(opts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
		app.Logger().WithField("module", module.Name()).Debug("module loaded")
	}
	return nil
}
