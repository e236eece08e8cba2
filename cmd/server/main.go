package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	webAdapter "cdg-engine/internal/adapters/web"
	"cdg-engine/internal/app"
	"cdg-engine/internal/config"
	"cdg-engine/internal/core"
	"cdg-engine/internal/db"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadSettings()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// The run archive is optional: without DATABASE_URL the server still
	// computes, it just does not persist results.
	var archive *db.RunArchive
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.NewPool(ctx)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		archive = db.NewRunArchive(pool)
	} else {
		logger.Warn("DATABASE_URL not set, run archive disabled")
	}

	svc := app.NewPipelineService(cfg, logger)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, archive, allowedOrigins, logger)

	logger.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
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
