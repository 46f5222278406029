package sales

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"sales",
		fx.Provide(
			NewClient,
			func(c *Client) API { return c },
		),
	)
}
