package plugin

import (
	"go.uber.org/fx"
)

// FxModule provides the pipeline and hooks its routes into server
// initialization.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(NewPipeline),
		fx.Invoke(registerRoutes),
	)
}
