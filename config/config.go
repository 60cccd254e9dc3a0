package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store определяет, какое хранилище выбрано по схеме DATABASE_URL.
type Store string

const (
	StorePostgres Store = "postgres"
	StoreMongo    Store = "mongo"
	StoreMemory   Store = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"spardha"`
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`

	AdminPasskey    string        `env:"ADMIN_PASSKEY"`
	JWTSecretKey    string        `env:"JWT_SECRET_KEY"`
	AdminSessionTTL time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"12h"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	SecureCookie       bool     `env:"SECURE_COOKIE" envDefault:"false"`
	MaxUploadBytes     int64    `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if _, err := c.Store(); err != nil {
		return err
	}
	if c.AdminPasskey == "" {
		return errors.New("ADMIN_PASSKEY environment variable is not set")
	}
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.AdminSessionTTL <= 0 {
		return fmt.Errorf("ADMIN_SESSION_TTL must be positive, got %s", c.AdminSessionTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Store выбирает реализацию репозитория по схеме DATABASE_URL.
func (c *Config) Store() (Store, error) {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return StorePostgres, nil
	case strings.HasPrefix(c.DatabaseURL, "mongodb://"), strings.HasPrefix(c.DatabaseURL, "mongodb+srv://"):
		return StoreMongo, nil
	case strings.HasPrefix(c.DatabaseURL, "memory://"):
		return StoreMemory, nil
	default:
		return "", fmt.Errorf("DATABASE_URL has unsupported scheme (want postgres://, mongodb:// or memory://)")
	}
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
