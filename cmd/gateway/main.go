package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/application/services"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/db"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/health"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/httpserver"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/redis"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/repositories"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/upstream"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting offline sync gateway...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Create the durable collections if missing; never destroys records
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Durable stores
	containers := redis.NewContainerStore(redisClient, logger)
	snapshots := repositories.NewSnapshotRepository(database, logger)
	queue := repositories.NewQueueRepository(database, logger)

	// Origin network boundary
	origin, err := upstream.NewClient(&cfg.Upstream, logger)
	if err != nil {
		logger.Fatal("Failed to initialize upstream client:", err)
	}
	originURL, err := url.Parse(cfg.Upstream.Origin)
	if err != nil {
		logger.Fatal("Invalid upstream origin:", err)
	}

	// Wire the offline engine services
	interceptor := services.NewInterceptService(containers, snapshots, queue, origin, &cfg.Offline, originURL.Host, logger)
	syncService := services.NewSyncService(queue, origin, &cfg.Offline, logger)
	generations := services.NewGenerationService(containers, origin, &cfg.Offline, logger)

	// Install and activate the current cache generation. Install soft-fails
	// per asset; activation prunes retired generations.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 60*time.Second)
	if err := generations.Install(startupCtx); err != nil {
		logger.Warn("Cache generation install incomplete:", err)
	}
	if err := generations.Activate(startupCtx); err != nil {
		logger.Warn("Cache generation activation failed:", err)
	}
	cancelStartup()

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		Interceptor:    interceptor,
		Sync:           syncService,
		Generations:    generations,
		Queue:          queue,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, &cfg.Offline, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Gateway started on %s:%s, fronting %s", cfg.Server.Host, cfg.Server.Port, cfg.Upstream.Origin)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
