package database

import (
	"fmt"
	"os"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

// Connect opens the postgres pool once. A non-empty databaseURL wins over the
// DB_* parts.
func Connect(databaseURL string) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn(databaseURL)), Config())
		if err != nil {
			err = fmt.Errorf("failed to connect database: %w", err)
			return
		}
		DB = db
	})
	if err != nil {
		return nil, err
	}
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	return DB, nil
}

// Config is shared by the postgres pool and the sqlite test store so both
// translate driver errors the same way.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func dsn(databaseURL string) string {
	if databaseURL != "" {
		return databaseURL
	}

	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		valueOrDefault("DB_HOST", "localhost"),
		valueOrDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASS"),
		valueOrDefault("DB_NAME", "campus_complaints"),
		valueOrDefault("DB_PORT", "5432"),
		valueOrDefault("DB_SSLMODE", "disable"),
	)
}

func valueOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
