package cart

import (
	"pos_core/internal/config"
	"pos_core/internal/sales"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"cart",
		fx.Provide(func(cfg config.Config, api sales.API, logger *zap.Logger) *Cart {
			return New(api, cfg.TaxRate, logger)
		}),
	)
}
