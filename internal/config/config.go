package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LogConfig controls the global slog logger.
type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type DBConfig struct {
	Driver   string // mysql | postgres | sqlite
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GRPCConfig struct {
	Host string
	Port string
}

type HTTPConfig struct {
	Addr string
}

// SlackConfig holds credentials for the Slack Web API and webhook verification.
// APIURL is only overridden in tests.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	APIURL        string
}

// AdminConfig guards the gRPC management surface.
// TokenHash is a bcrypt hash; an empty value disables the check.
type AdminConfig struct {
	TokenHash string
}

// ScheduleConfig describes when the recurring pairing trigger fires.
type ScheduleConfig struct {
	Cron     string
	Timezone string
}

type Config struct {
	App struct {
		ENV string
	}

	Log      LogConfig
	DB       DBConfig
	Redis    RedisConfig
	GRPC     GRPCConfig
	HTTP     HTTPConfig
	Slack    SlackConfig
	Admin    AdminConfig
	Schedule ScheduleConfig
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "coffee_chat")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.DSN = firstNonEmpty(os.Getenv("DB_DSN"), os.Getenv("MYSQL_DSN"))
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "coffee_chat")

		switch cfg.DB.Driver {
		case "postgres":
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("DB_PATH", "coffee_chat.db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP (Slack webhooks + health)
	cfg.HTTP.Addr = getEnvDefault("HTTP_ADDR", ":8080")

	// Slack
	cfg.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.Slack.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	cfg.Slack.APIURL = os.Getenv("SLACK_API_URL")

	cfg.Admin.TokenHash = os.Getenv("ADMIN_TOKEN_HASH")

	// Monday 09:00 UTC by default
	cfg.Schedule.Cron = getEnvDefault("PAIRING_CRON", "0 9 * * 1")
	cfg.Schedule.Timezone = getEnvDefault("PAIRING_TZ", "UTC")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
