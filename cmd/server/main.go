package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/campuscomplaint/internal/bootstrap"
	"anoa.com/campuscomplaint/internal/config"
	"anoa.com/campuscomplaint/internal/server"
	"anoa.com/campuscomplaint/pkg/database"
	"anoa.com/campuscomplaint/pkg/logger"
	"anoa.com/campuscomplaint/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		log.Warn("JWT_SECRET is not set, using the development secret")
		cfg.JWTSecret = "12345"
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	if cfg.BootstrapAdminID != "" {
		if err := bootstrap.SeedAdminUser(db, log, cfg.BootstrapAdminID, cfg.BootstrapAdminEmail); err != nil {
			log.WithError(err).Fatal("failed to seed admin user")
		}
	}

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	fileStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName)
	if err != nil {
		if cfg.IsProduction() {
			log.WithError(err).Fatal("failed to initialize cloudinary storage")
		}
		log.WithError(err).Warn("attachment uploads disabled")
	}

	var searchClient meilisearch.ServiceManager
	if cfg.MeiliSearchHost != "" {
		searchClient = meilisearch.New(meiliHost(cfg.MeiliSearchHost), meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	}

	srv, err := server.NewServer(server.Dependencies{
		DB:      db,
		Redis:   redisClient,
		Storage: fileStorage,
		Search:  searchClient,
		Config:  cfg,
		Log:     log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}

// connectRedis returns nil when redis is not configured or unreachable; live
// notifications and upload sweeping are then disabled.
func connectRedis(cfg *config.Config, log logrus.FieldLogger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL is not set, live notifications disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("invalid REDIS_URL")
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, live notifications disabled")
		_ = client.Close()
		return nil
	}
	return client
}

func meiliHost(host string) string {
	if !strings.HasPrefix(host, "http") {
		return "http://" + host + ":7700"
	}
	return host
}
