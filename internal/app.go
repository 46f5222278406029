package internal

import (
	"context"

	"pos_core/internal/broadcast"
	"pos_core/internal/cart"
	"pos_core/internal/catalog"
	"pos_core/internal/config"
	"pos_core/internal/logging"
	"pos_core/internal/sales"
	"pos_core/internal/terminal"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	var runner *terminal.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		logging.Module(),
		catalog.Module(),
		sales.Module(),
		broadcast.Module(),
		cart.Module(),
		terminal.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
