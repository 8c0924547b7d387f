package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Blob storage
	StorageType         string // "local" or "supabase"
	LocalStoragePath    string
	LocalStorageBaseURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Metadata database
	DatabaseType string // "sqlite" or "redis"
	SQLitePath   string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Upload limits and reconciliation
	MaxFileSize              int64
	StaleUploadHours         int
	ReconcileIntervalMinutes int

	// Auth
	JWTSecret string

	// Logging
	LogLevel string
	LogPath  string

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	cfg := &Config{
		StorageType:         getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:    getEnv("LOCAL_STORAGE_PATH", "/tmp/photolog-storage"),
		LocalStorageBaseURL: getEnv("LOCAL_STORAGE_BASE_URL", "http://localhost:8080/storage"),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "photos"),

		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "photolog.db"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxFileSize:              int64(getEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
		StaleUploadHours:         getEnvInt("STALE_UPLOAD_HOURS", 1),
		ReconcileIntervalMinutes: getEnvInt("RECONCILE_INTERVAL_MINUTES", 60),

		JWTSecret: getEnv("JWT_SECRET", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageType {
	case "local":
		if c.LocalStoragePath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required for local storage")
		}
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for supabase storage")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for supabase storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q (want local or supabase)", c.StorageType)
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite database")
		}
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for redis database")
		}
	default:
		return fmt.Errorf("unknown DATABASE_TYPE %q (want sqlite or redis)", c.DatabaseType)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.StaleUploadHours <= 0 {
		return fmt.Errorf("STALE_UPLOAD_HOURS must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
