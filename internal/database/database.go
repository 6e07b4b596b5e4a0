package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rewards-service/internal/config"
	"rewards-service/internal/models"
)

// Connect opens the configured database. SQL logging is only verbose in
// development.
func Connect(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = mysql.Open(cfg.DSN())
	}

	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connection established", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.EmployerUser{},
		&models.Pump{},
		&models.PumpAssignment{},
		&models.Transaction{},
		&models.RewardLedgerEntry{},
		&models.Gift{},
		&models.GiftAssignment{},
		&models.Redemption{},
		&models.RewardSetting{},
		&models.Notification{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database migration completed")
	return nil
}
