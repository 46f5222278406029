package broadcast

import (
	"context"

	"pos_core/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"broadcast",
		fx.Provide(func(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) Notifier {
			if cfg.RedisAddr == "" {
				return Nop{}
			}
			r := NewRedis(cfg.RedisAddr, logger)
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					return r.Close()
				},
			})
			return r
		}),
	)
}
