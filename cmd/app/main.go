package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cdg-engine/internal/adapters/cli"
	"cdg-engine/internal/app"
	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: app <compute|cashflow|scenarios|kpi|whatif|validate|json> ...")
		os.Exit(2)
	}

	cfg, err := loadSettings()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	svc := app.NewPipelineService(cfg, logger)
	cli.Run(context.Background(), svc, os.Args[1:])
}

func loadSettings() (*core.Settings, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
