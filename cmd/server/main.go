package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api"
	"github.com/bible-game/common/internal/database"
	"github.com/bible-game/common/internal/security"
	"github.com/bible-game/common/internal/storage"
	"github.com/bible-game/common/pkg/config"
	"github.com/bible-game/common/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to the configuration file, empty to read only the environment")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath == "" {
		cfg, err = config.LoadConfigFromEnv()
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	appLogger := logger.NewLogger(cfg.Logging)
	appLogger.WithFields(map[string]interface{}{"config": cfg.SanitizeForLogging()}).Debug("Configuration loaded")

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal("Server stopped with error", "error", err)
	}
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.NewConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db, dialect); err != nil {
		return err
	}

	tokens, err := security.NewTokenManager(cfg.Security.JWT,
		security.WithLogger(appLogger.WithComponent("tokens").Entry()))
	if err != nil {
		return err
	}
	appLogger.Info("Token manager ready", "algorithm", tokens.Algorithm())

	var bucket *storage.BucketService
	if cfg.AWS.S3.AudioBucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		bucket = storage.NewBucketService(client, cfg.AWS.S3.AudioBucket, appLogger)
	} else {
		appLogger.Warning("No audio bucket configured, passage audio endpoints are unavailable")
	}

	services := api.NewServices(db, dialect, tokens, bucket, appLogger, cfg)

	gin.SetMode(cfg.GinMode())
	router := gin.New()
	api.SetupRoutes(ctx, router, services)

	errorLog := appLogger.WithComponent("http").Writer()
	defer errorLog.Close()

	srv := &http.Server{
		ErrorLog:     log.New(errorLog, "", 0),
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "address", srv.Addr, "mode", cfg.Server.Mode)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return err
	}

	appLogger.Info("Server stopped")
	return nil
}
