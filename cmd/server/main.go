package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/api"
	"github.com/cardiopredict-server/internal/config"
	"github.com/cardiopredict-server/internal/database"
	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/history"
	"github.com/cardiopredict-server/internal/notify"
	"github.com/cardiopredict-server/internal/service"
	"github.com/cardiopredict-server/internal/session"
)

func main() {
	// .env values are picked up by viper's environment binding
	if err := config.LoadEnvFiles(".env"); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	historyReader, historyCloser, err := openHistory(ctx, cfg.History, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history catalog")
	}
	defer historyCloser.Close()

	hub := notify.NewHub(logger, notify.WithPendingTTL(cfg.Session.TTL))
	defer hub.Close()

	workspaceStore, storeCloser := openWorkspaceStore(ctx, cfg.Session, hub, logger)
	defer storeCloser.Close()

	catalog := service.NewAlgorithmCatalog()
	estimator := service.NewThresholdRiskEstimator(logger, service.NewSeededSource(cfg.Estimator.Seed))

	server := api.NewServer(configManager, api.Services{
		Catalog:       catalog,
		Predictions:   service.NewPredictionService(estimator, catalog, logger),
		Intake:        service.NewIntakeService(logger, cfg.Simulation.ManualEntryDelay),
		Uploads:       service.NewUploadService(logger, cfg.Simulation.UploadDelay),
		Reports:       service.NewReportService(catalog),
		History:       historyReader,
		Workspaces:    session.NewManager(workspaceStore, logger),
		Notifications: hub,
	}, logger)

	logger.WithFields(logrus.Fields{
		"host":            cfg.Server.Host,
		"port":            cfg.Server.Port,
		"environment":     cfg.Environment,
		"history_backend": cfg.History.Backend,
		"session_backend": cfg.Session.Backend,
	}).Info("Starting CardioPredict server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// openHistory selects the history catalog backend.
func openHistory(ctx context.Context, cfg domain.HistoryConfig, logger *logrus.Logger) (domain.HistoryReader, io.Closer, error) {
	switch cfg.Backend {
	case domain.HistoryBackendSQLite:
		store, err := history.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", store.Path()).Info("Serving history from SQLite")
		return store, store, nil

	case domain.HistoryBackendPostgres:
		if cfg.MigrateOnStart {
			if err := migrate(ctx, cfg.PostgresURL, logger); err != nil {
				return nil, nil, err
			}
		}
		db, err := database.NewConnection(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.NewPostgresStore(ctx, db.SQL())
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.Seed(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("seeding history catalog: %w", err)
		}
		logger.Info("Serving history from PostgreSQL")
		return store, db, nil

	default:
		store := history.NewMemoryStore()
		return store, store, nil
	}
}

func migrate(ctx context.Context, url string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(url, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}

// openWorkspaceStore returns the workspace store. A Redis backend that cannot be reached at
// startup degrades to the in-memory store. When memory is the only copy, an evicted workspace
// is gone and its undelivered notices are dropped from hub.
func openWorkspaceStore(ctx context.Context, cfg domain.SessionConfig, hub *notify.Hub, logger *logrus.Logger) (session.Store, io.Closer) {
	memory := session.NewMemoryStore(cfg.MaxEntries, cfg.TTL)
	if cfg.Backend != domain.SessionBackendRedis {
		memory.OnEvict(hub.Drop)
		return memory, io.NopCloser(nil)
	}

	redisStore, err := session.NewRedisStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, keeping workspaces in memory")
		memory.OnEvict(hub.Drop)
		return memory, io.NopCloser(nil)
	}

	logger.Info("Workspaces stored in Redis")
	return session.NewResilientStore(redisStore, memory, cfg.CircuitBreaker, logger), redisStore
}
