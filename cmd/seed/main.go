// Command seed creates the first ADMIN account so the site can be administered.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/repository/postgres"
	"github.com/dom/institutional-site/internal/service"
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

	input := service.RegisterInput{
		Username: os.Getenv("SEED_ADMIN_USERNAME"),
		Password: os.Getenv("SEED_ADMIN_PASSWORD"),
		Name:     os.Getenv("SEED_ADMIN_NAME"),
		Email:    os.Getenv("SEED_ADMIN_EMAIL"),
	}
	if input.Name == "" {
		input.Name = "Administrator"
	}
	if input.Username == "" || input.Password == "" {
		logs.Configuration(log).Fatal("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD are required")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		logs.Configuration(log).WithError(err).Fatal("failed to create token service")
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	repos := postgres.NewRepositories(db)

	authService := service.NewAuthService(repos.User, auth.NewPasswordHasher(cfg.BcryptCost), tokens, nil, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := authService.EnsureAdmin(ctx, input)
	if err != nil {
		log.WithError(err).Fatal("failed to seed admin")
	}
	if created {
		log.WithField("username", input.Username).Info("admin account created")
	} else {
		log.WithField("username", input.Username).Info("admin account already exists")
	}
}
