package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/institutional-site/internal/api"
	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/dom/institutional-site/internal/repository/postgres"
	"github.com/dom/institutional-site/internal/service"
	"github.com/dom/institutional-site/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logs.Configuration(logrus.StandardLogger()).WithError(err).Fatal("failed to load config")
	}

	log := logs.New(logs.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		logs.Configuration(log).WithError(err).Fatal("failed to create token service")
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	images, uploadDir, err := newImageStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize image store")
	}

	var m mailer.Mailer
	if cfg.SMTP.Enabled() {
		smtp, err := mailer.NewSMTPMailer(cfg.SMTP, cfg.UpstreamTimeout)
		if err != nil {
			logs.Configuration(log).WithError(err).Fatal("failed to configure smtp")
		}
		m = smtp
	} else {
		entry := logs.Configuration(log)
		if cfg.IsProduction() {
			entry.Warn("SMTP is not configured: password reset emails and the contact form are disabled")
		} else {
			entry.Info("SMTP is not configured: reset tokens are returned in responses")
		}
	}

	// Initialize services
	services := service.NewServices(repos, tokens, images, m, cfg, log)

	// Initialize router
	router := api.NewRouter(api.Dependencies{
		Services:  services,
		Config:    cfg,
		Log:       log,
		UploadDir: uploadDir,
	})

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server stopped")
}

// newImageStore prefers MinIO when configured and falls back to local disk.
// The returned directory is non-empty only for the disk store, which the
// router then serves.
func newImageStore(cfg *config.Config, log logrus.FieldLogger) (storage.ImageStore, string, error) {
	if cfg.MinIO.Enabled() {
		store, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, "", err
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		log.WithField("bucket", cfg.MinIO.Bucket).Info("storing images in minio")
		return store, "", nil
	}

	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		return nil, "", err
	}
	log.WithField("dir", cfg.UploadDir).Info("storing images on local disk")
	return store, store.Root(), nil
}
