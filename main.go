package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/config"
	"github.com/govlens-inc/govlens-engine/pkg/database"
	"github.com/govlens-inc/govlens-engine/pkg/handlers"
	"github.com/govlens-inc/govlens-engine/pkg/llm"
	"github.com/govlens-inc/govlens-engine/pkg/logging"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
	"github.com/govlens-inc/govlens-engine/pkg/retry"
	"github.com/govlens-inc/govlens-engine/pkg/services"
	"github.com/govlens-inc/govlens-engine/pkg/services/jobs"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.Bool("classifier_enabled", cfg.Classifier.IsEnabled()))

	ctx := context.Background()

	// The database container may still be starting; retry the initial
	// connection with backoff.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	proposalRepo := repositories.NewProposalRepository(db.Pool)
	stageRecordRepo := repositories.NewStageRecordRepository(db.Pool)
	matchingResultRepo := repositories.NewMatchingResultRepository(db.Pool)

	// Matching pipeline
	deterministic := services.NewDeterministicMatchService(stageRecordRepo, logger)
	fuzzy := services.NewFuzzyMatchService(logger)
	applier := services.NewMatchApplier(stageRecordRepo, proposalRepo, matchingResultRepo, logger)

	var classifier services.ClassifierService
	if cfg.Classifier.IsEnabled() {
		llmClient, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.Classifier.Endpoint,
			Model:    cfg.Classifier.Model,
			APIKey:   cfg.Classifier.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to build classifier client", zap.Error(err))
		}
		classifier = services.NewClassifierService(llmClient, cfg.Classifier.Temperature, logger)
		logger.Info("Classifier enabled",
			zap.String("endpoint", cfg.Classifier.Endpoint),
			zap.String("model", cfg.Classifier.Model))
	}

	reconciler := services.NewReconcileService(
		stageRecordRepo, proposalRepo, deterministic, fuzzy, classifier, applier, logger)
	jobStore := jobs.NewMemoryStore(cfg.Matching.JobRetention())
	matchJobs := services.NewMatchJobService(
		reconciler, stageRecordRepo, jobStore, cfg.Matching.JobTimeout(), logger)
	bulkImport := services.NewBulkImportService(stageRecordRepo, applier, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewMatchingHandler(matchJobs, bulkImport, matchingResultRepo, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting govlens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// runMigrations opens a short-lived database/sql connection for the migrate
// driver; the pgx pool is not usable there.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = migrationDB.Close() }()

	return database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger)
}
