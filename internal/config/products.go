package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMigrationsPath  = "migrations/products"
	defaultImagesDir       = "images"
	defaultShutdownTimeout = 10 * time.Second

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second

	defaultSessionMaxAge   = 24 * time.Hour
	defaultMaxUploadBytes  = 32 << 20
	minSessionSecretLength = 32
)

type Products struct {
	DatabaseURL       string
	RabbitMQURL       string
	EventsQueue       string
	HTTPAddr          string
	MigrationsPath    string
	ImagesDir         string
	SessionSecret     string
	SessionMaxAge     time.Duration
	SecureCookies     bool
	MaxUploadBytes    int64
	ShutdownTimeout   time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration
	ReadHeaderTimeout time.Duration
}

func LoadProducts() (Products, error) {
	cfg := Products{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		EventsQueue:       getEnv("EVENTS_QUEUE", defaultEventsQueue),
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		ImagesDir:         getEnv("IMAGES_DIR", defaultImagesDir),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionMaxAge:     defaultSessionMaxAge,
		MaxUploadBytes:    defaultMaxUploadBytes,
		ShutdownTimeout:   defaultShutdownTimeout,
		DBMaxOpenConns:    defaultDBMaxOpenConns,
		DBMaxIdleConns:    defaultDBMaxIdleConns,
		DBConnMaxLifetime: defaultDBConnMaxLifetime,
		DBPingTimeout:     defaultDBPingTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Products{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return Products{}, fmt.Errorf("RABBITMQ_URL is required")
	}
	if len(cfg.SessionSecret) < minSessionSecretLength {
		return Products{}, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}

	secure, err := strconv.ParseBool(getEnv("SECURE_COOKIES", "false"))
	if err != nil {
		return Products{}, fmt.Errorf("SECURE_COOKIES: %w", err)
	}
	cfg.SecureCookies = secure

	if raw := getEnv("MAX_UPLOAD_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return Products{}, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
		}
		cfg.MaxUploadBytes = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
