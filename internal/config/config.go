package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Port     string `mapstructure:"port"`
		GRPCPort string `mapstructure:"grpc_port"`
		GinMode  string `mapstructure:"gin_mode"`
	} `mapstructure:"server"`
	Database struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		URL      string `mapstructure:"url"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Auth struct {
		JWTSecret  string        `mapstructure:"jwt_secret"`
		SessionTTL time.Duration `mapstructure:"session_ttl"`
		CookieName string        `mapstructure:"cookie_name"`
	} `mapstructure:"auth"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Jobs struct {
		ExpireAssignments     string        `mapstructure:"expire_assignments"`
		ReconcileBalances     string        `mapstructure:"reconcile_balances"`
		PurgeNotifications    string        `mapstructure:"purge_notifications"`
		NotificationRetention time.Duration `mapstructure:"notification_retention"`
	} `mapstructure:"jobs"`
	Worker struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"worker"`
	Notify struct {
		WebhookURL    string `mapstructure:"webhook_url"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"notify"`
}

// LoadEnv loads .env from the working directory, falling back to the parent.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found in current directory, trying parent")
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using system environment variables")
		}
	}
}

// Load reads config.yaml (optional) and REWARDS_* environment variables on
// top of the defaults below. DB_*, REDIS_URL, PORT and GIN_MODE are also
// honoured for compatibility with existing deployments.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "REWARDS_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.grpc_port", "REWARDS_SERVER_GRPC_PORT", "GRPC_PORT")
	_ = v.BindEnv("server.gin_mode", "REWARDS_SERVER_GIN_MODE", "GIN_MODE")
	_ = v.BindEnv("database.host", "REWARDS_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "REWARDS_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "REWARDS_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "REWARDS_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "REWARDS_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.url", "REWARDS_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "REWARDS_REDIS_ADDR", "REDIS_URL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.grpc_port", "50051")
	v.SetDefault("server.gin_mode", "")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", "168h")
	v.SetDefault("auth.cookie_name", "token")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("jobs.expire_assignments", "0 */15 * * * *")
	v.SetDefault("jobs.reconcile_balances", "0 30 2 * * *")
	v.SetDefault("jobs.purge_notifications", "0 0 3 * * *")
	v.SetDefault("jobs.notification_retention", "720h")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_secret", "")
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be greater than 0")
	}
	if len(c.CORS.AllowOrigins) == 0 {
		return errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range c.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return errors.New("cors.allow_origins must not contain wildcard *")
		}
	}
	return nil
}

// DSN builds the driver specific connection string unless database.url is set.
func (c Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.Database.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development")
}
