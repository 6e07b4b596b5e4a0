package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"rewards-service/internal/config"
	"rewards-service/internal/database"
	"rewards-service/internal/logger"
	"rewards-service/internal/seed"
	"rewards-service/internal/services"
)

func main() {
	path := flag.String("file", "seed.yaml", "seed catalog (YAML)")
	flag.Parse()

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

	catalog, err := seed.Load(*path)
	if err != nil {
		zlog.Fatal("seed file invalid", zap.Error(err))
	}

	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	settings := services.NewSettingsService(db, zlog)
	seeder := &seed.Seeder{
		DB:       db,
		Settings: settings,
		Pumps:    services.NewPumpService(db, zlog),
		Gifts:    services.NewGiftService(db, settings, zlog),
		Logger:   zlog,
	}
	if _, err := seeder.Apply(context.Background(), catalog); err != nil {
		zlog.Fatal("seed failed", zap.Error(err))
	}
}
