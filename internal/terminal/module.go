package terminal

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"terminal",
		fx.Provide(NewRunner),
	)
}
