package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rewards-service/internal/config"
	"rewards-service/internal/database"
	grpcServer "rewards-service/internal/grpc"
	"rewards-service/internal/handlers"
	"rewards-service/internal/logger"
	"rewards-service/internal/middleware"
	"rewards-service/internal/services"
	"rewards-service/internal/session"
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

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	// Initialize Database
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal("database handle failed", zap.Error(err))
	}

	// Redis backs both session revocation and the task queue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	notifier := services.NewQueueNotifier(asynqClient)

	// Init Services
	settingsService := services.NewSettingsService(db, zlog)
	authService := services.NewAuthService(db, []byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL, session.NewRedisStore(rdb), zlog)
	userService := services.NewUserService(db, settingsService, zlog)
	pumpService := services.NewPumpService(db, zlog)
	transactionService := services.NewTransactionService(db, settingsService, pumpService, notifier, zlog)
	ledgerService := services.NewLedgerService(db, settingsService, zlog)
	giftService := services.NewGiftService(db, settingsService, zlog)
	assignmentService := services.NewGiftAssignmentService(db, notifier, zlog)
	redemptionService := services.NewRedemptionService(db, settingsService, notifier, zlog)
	notificationService := services.NewNotificationService(db, zlog)
	dashboardService := services.NewDashboardService(db, zlog)
	maintenanceService := services.NewMaintenanceService(assignmentService, ledgerService, notificationService, cfg.Jobs.NotificationRetention, zlog)

	h := &handlers.Handler{
		Auth:          authService,
		Users:         userService,
		Pumps:         pumpService,
		Transactions:  transactionService,
		Ledger:        ledgerService,
		Gifts:         giftService,
		Assignments:   assignmentService,
		Redemptions:   redemptionService,
		Settings:      settingsService,
		Notifications: notificationService,
		Dashboard:     dashboardService,
		CookieName:    cfg.Auth.CookieName,
		CookieSecure:  !cfg.IsDevelopment(),
		SessionTTL:    cfg.Auth.SessionTTL,
		Logger:        zlog,
	}

	// Initialize Gin
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r, authService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start gRPC health server
	health := grpcServer.NewServer(zlog, 15*time.Second,
		sqlDB,
		grpcServer.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	)
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		zlog.Fatal("gRPC listen failed", zap.Error(err))
	}
	go health.Watch(ctx)
	go func() {
		if err := health.Serve(lis); err != nil {
			zlog.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	// Start Cron Schedulers
	scheduler, err := maintenanceService.StartScheduler(services.Schedule{
		ExpireAssignments:  cfg.Jobs.ExpireAssignments,
		ReconcileBalances:  cfg.Jobs.ReconcileBalances,
		PurgeNotifications: cfg.Jobs.PurgeNotifications,
	})
	if err != nil {
		zlog.Fatal("scheduler start failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP shutdown failed", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	health.Stop()
}
