package main

import (
	"go.uber.org/fx"

	"github.com/Ladle-Labs/flavorbook-back/internal/config"
	"github.com/Ladle-Labs/flavorbook-back/internal/db"
	"github.com/Ladle-Labs/flavorbook-back/internal/logger"
	"github.com/Ladle-Labs/flavorbook-back/internal/service"
	"github.com/Ladle-Labs/flavorbook-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			db.NewGormClient,
		),
		service.Module,
		transport.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	)
	app.Run()
}
