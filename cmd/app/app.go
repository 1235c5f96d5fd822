package main

import (
	"os"

	"github.com/DRSN-tech/visual-commerce/internal/app"
	config "github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

//	@title			Visual Commerce API
//	@version		1.0
//	@description	Визуальный поиск товаров и приём платежей Stripe
//	@BasePath		/

func main() {
	log, err := logger.New(os.Getenv("LOG_BACKEND"))
	if err != nil {
		log = logger.NewSlogLogger()
		log.Errorf(err, "falling back to slog")
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
