package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Env holds process settings read from the environment (and .env if present).
type Env struct {
	Port          string
	DatabaseURL   string
	LogLevel      string
	LogFormat     string
	EncryptionKey string
	ConfigPath    string
	UploadTTL     time.Duration
	PurgeSchedule string
}

// LoadEnv loads .env when present and reads the process settings.
// The returned bool reports whether a .env file was found.
func LoadEnv() (Env, bool) {
	found := godotenv.Load() == nil

	ttl, err := time.ParseDuration(os.Getenv("UPLOAD_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return Env{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		ConfigPath:    getEnv("CONFIG_PATH", "config/config.yaml"),
		UploadTTL:     ttl,
		PurgeSchedule: getEnv("UPLOAD_PURGE_SCHEDULE", "@every 10m"),
	}, found
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
