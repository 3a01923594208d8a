package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/institutional-site/internal/api"
	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/repository"
	repoPostgres "github.com/dom/institutional-site/internal/repository/postgres"
	"github.com/dom/institutional-site/internal/service"
	"github.com/dom/institutional-site/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL container, migrates it and returns a connection.
// It is skipped in -short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_institutional_site"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(testDB.Cleanup)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	testDB.DB = db

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"timeline_posts",
		"commemorative_dates",
		"testimonials",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		CORSOrigins:        []string{"*"},
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 24,
		BcryptCost:         auth.MinBcryptCost,
		PasswordMinLength:  8,
		ResetTokenTTL:      time.Hour,
		PublicBaseURL:      "http://site.test",
		LogLevel:           "error",
		LogFormat:          "text",
		UpstreamTimeout:    5 * time.Second,
		UploadURLPrefix:    "/uploads",
	}
}

// TestServer holds all components for HTTP-level testing
type TestServer struct {
	Server   *httptest.Server
	Repos    *repository.Repositories
	Memory   *MemoryRepositories
	Services *service.Services
	Tokens   *auth.TokenService
	Images   *storage.DiskStore
	Mailer   *RecordingMailer
	Config   *config.Config
	Log      *logrus.Logger
}

// ServerOption customizes NewTestServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	withoutMailer bool
	cfg           func(*config.Config)
}

// WithoutMailer starts the server as if SMTP were not configured.
func WithoutMailer() ServerOption {
	return func(o *serverOptions) { o.withoutMailer = true }
}

// WithConfig adjusts the test configuration before wiring.
func WithConfig(fn func(*config.Config)) ServerOption {
	return func(o *serverOptions) { o.cfg = fn }
}

// NewTestServer wires the full router over in-memory repositories, a disk
// image store in a temp dir and a recording mailer.
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := TestConfig()
	cfg.UploadDir = t.TempDir()
	if o.cfg != nil {
		o.cfg(cfg)
	}

	log := logs.Discard()
	memory := NewMemoryRepositories()
	repos := memory.Repositories()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	images, err := storage.NewDiskStore(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}

	ts := &TestServer{
		Repos:  repos,
		Memory: memory,
		Tokens: tokens,
		Images: images,
		Config: cfg,
		Log:    log,
	}

	var services *service.Services
	if o.withoutMailer {
		services = service.NewServices(repos, tokens, images, nil, cfg, log)
	} else {
		ts.Mailer = &RecordingMailer{}
		services = service.NewServices(repos, tokens, images, ts.Mailer, cfg, log)
	}
	ts.Services = services

	router := api.NewRouter(api.Dependencies{
		Services:  services,
		Config:    cfg,
		Log:       log,
		UploadDir: images.Root(),
	})
	ts.Server = httptest.NewServer(router)
	t.Cleanup(ts.Server.Close)

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}
