package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkessler/cardvault-api/internal/config"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/learning"
	"github.com/mkessler/cardvault-api/internal/platform/fsstore"
	"github.com/mkessler/cardvault-api/internal/platform/gemini"
	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/platform/postgres"
	"github.com/mkessler/cardvault-api/internal/service/auth"
	"github.com/mkessler/cardvault-api/internal/service/batch"
	"github.com/mkessler/cardvault-api/internal/service/reprocess"
	"github.com/mkessler/cardvault-api/internal/service/verify"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

// application holds the shared application dependencies so wiring happens
// in one place and cleanup runs in one place on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	fileStore    *fsstore.PendingFileStore
	historyStore store.HistoryStore
	batchStore   store.BatchStatusStore
	catalog      store.CatalogStore

	// Concurrency primitives
	registry *task.Registry
	locks    *task.KeyedMutex

	// External integrations
	extractor extraction.Extractor
	hook      learning.Hook

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	verifyService    *verify.Service
	reprocessService *reprocess.Service
	batchService     *batch.Service
}

// newApplication loads configuration and wires every component of the
// server. Failures here are fatal; the process has nothing useful to do
// with a half-wired dependency graph.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db, log); err != nil {
		closeQuietly(db, log)
		return nil, err
	}

	app := &application{
		config:   cfg,
		logger:   log,
		db:       db,
		registry: task.NewRegistry(),
		locks:    task.NewKeyedMutex(),
	}
	if err := app.wire(ctx); err != nil {
		closeQuietly(db, log)
		return nil, err
	}
	return app, nil
}

// wire builds the store, integration, and service layers on top of the
// already-open database handle.
func (app *application) wire(ctx context.Context) error {
	cfg := app.config
	log := app.logger

	fileStore, err := fsstore.NewPendingFileStore(
		cfg.Storage.PendingDir,
		cfg.Storage.ArchiveDir,
		cfg.Storage.IntakeDir,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize pending store: %w", err)
	}
	app.fileStore = fileStore

	historyStore, err := fsstore.NewHistoryFileStore(cfg.Storage.HistoryDir, log)
	if err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}
	app.historyStore = historyStore

	batchStore, err := fsstore.NewBatchStatusFileStore(cfg.Storage.StateDir)
	if err != nil {
		return fmt.Errorf("failed to initialize batch status store: %w", err)
	}
	app.batchStore = batchStore

	app.catalog = postgres.NewPostgresCatalogStore(app.db, log)

	extractor, err := gemini.NewGeminiExtractor(ctx, log, cfg.Extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}
	app.extractor = extractor

	app.hook = learning.NewHook(cfg.Learning, log)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.jwtService = jwtService
	app.passwordVerifier = auth.NewBcryptVerifier()

	verifyService, err := verify.NewService(
		fileStore, fileStore, historyStore, app.catalog, app.hook, app.locks, log)
	if err != nil {
		return fmt.Errorf("failed to initialize verify service: %w", err)
	}
	app.verifyService = verifyService

	reprocessService, err := reprocess.NewService(
		fileStore, fileStore, extractor, app.locks, app.registry, log)
	if err != nil {
		return fmt.Errorf("failed to initialize reprocess service: %w", err)
	}
	app.reprocessService = reprocessService

	batchService, err := batch.NewService(
		fileStore, batchStore, extractor, app.registry, cfg.Batch.DefaultCount, log)
	if err != nil {
		return fmt.Errorf("failed to initialize batch service: %w", err)
	}
	app.batchService = batchService

	log.Info("application wired",
		"pending_dir", cfg.Storage.PendingDir,
		"intake_dir", cfg.Storage.IntakeDir,
		"archive_dir", cfg.Storage.ArchiveDir)
	return nil
}

// cleanup releases held resources during shutdown. Any batch or
// reprocessing job still running is cancelled cooperatively.
func (app *application) cleanup() {
	if job := app.registry.Get("batch"); job != nil {
		app.logger.Info("cancelling batch sweep for shutdown", "run_id", job.RunID())
		job.Cancel()
		<-job.Done()
	}
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, log *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	}
}
