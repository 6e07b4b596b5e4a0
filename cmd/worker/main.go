package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"rewards-service/internal/config"
	"rewards-service/internal/consumers"
	"rewards-service/internal/database"
	"rewards-service/internal/logger"
	"rewards-service/internal/services"
	"rewards-service/internal/worker"
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

	// Connect DB
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}

	// Processor
	notifications := services.NewNotificationService(db, zlog)
	processor := consumers.NewNotificationProcessor(notifications, cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret, zlog)

	// Redis
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	zlog.Info("starting asynq worker", zap.Int("concurrency", cfg.Worker.Concurrency))
	srv := worker.NewServer(redisOpt, cfg.Worker.Concurrency, zlog)
	if err := srv.Run(worker.NewServeMux(processor)); err != nil {
		zlog.Fatal("could not run asynq server", zap.Error(err))
	}
}
