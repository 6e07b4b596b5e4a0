package main

import (
	"log"

	"go.uber.org/zap"

	"rewards-service/internal/config"
	"rewards-service/internal/database"
	"rewards-service/internal/logger"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Initialize Database
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}

	// Run Migrations
	zlog.Info("running database migrations")
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
}
