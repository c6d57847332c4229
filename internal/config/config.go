package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	LogLevel       string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	JWTSecret string

	BootstrapAdminID    string
	BootstrapAdminEmail string

	DepartmentAdminTransitions bool

	SubmitCooldown time.Duration

	OrphanCleanupSchedule string
	OrphanUploadTTL       time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "complaint-attachments"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		BootstrapAdminID:    os.Getenv("BOOTSTRAP_ADMIN_ID"),
		BootstrapAdminEmail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),

		OrphanCleanupSchedule: getEnv("ORPHAN_CLEANUP_SCHEDULE", "@every 12h"),
	}

	var err error
	cfg.DepartmentAdminTransitions, err = parseBool(getEnv("DEPARTMENT_ADMIN_TRANSITIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPARTMENT_ADMIN_TRANSITIONS: %w", err)
	}
	cfg.OrphanUploadTTL, err = parseDuration(getEnv("ORPHAN_UPLOAD_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_UPLOAD_TTL: %w", err)
	}
	cfg.SubmitCooldown, err = parseDuration(getEnv("RATE_LIMIT_SUBMIT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SUBMIT: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}
