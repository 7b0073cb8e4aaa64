package main

import (
	"context"                      // context package is needed for Redis operations
	"errors"                       // errors package for server shutdown checks
	"net/http"                     // HTTP server
	"os"                           // OS signals
	"os/signal"                    // Signal notifications
	"syscall"                      // SIGTERM
	"time"                         // Shutdown timeout
	"travel_tax/internal/api"      // Custom package for API handlers
	"travel_tax/internal/config"   // Custom package for configuration
	"travel_tax/internal/db"       // Database bootstrap
	"travel_tax/internal/metrics"  // Prometheus metrics
	"travel_tax/internal/receipts" // Receipt upload presigning
	"travel_tax/internal/store"    // Persistence
	"travel_tax/internal/utils"    // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	defer db.Close(gdb)
	if cfg.DBAutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}
	}

	// Setup Redis client; caching is skipped without REDIS_ADDR
	var cache *utils.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		defer redisClient.Close()
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		cache = utils.NewCache(redisClient, cfg.CacheTTL)
	}

	deps := api.Deps{
		Config:  cfg,
		Store:   store.New(gdb),
		Cache:   cache,
		Metrics: metrics.New(),
	}
	// Receipt uploads are enabled only when a bucket is configured
	if cfg.S3Bucket != "" {
		presigner, err := receipts.NewS3Presigner(context.Background(), receipts.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Expiry:    cfg.ReceiptTTL,
		})
		if err != nil {
			logrus.Fatalf("failed to configure receipt storage: %v", err)
		}
		deps.Receipts = presigner
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(deps)
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	// Wait for an interrupt, then drain in-flight requests
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
