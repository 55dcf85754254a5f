// Package mcp exposes the prediction, catalog and history operations as MCP tools.
// The lite server requires no external databases.
package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/cardiopredict-server/internal/config"
	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/history"
	"github.com/cardiopredict-server/internal/service"
)

// Version is reported to MCP clients during initialization.
const Version = "v1.0.0"

// LiteServer is a lightweight MCP server. History is served from memory or a local SQLite file.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server

	catalog     *service.AlgorithmCatalog
	predictions *service.PredictionService
	intake      *service.IntakeService
	uploads     *service.UploadService
	reports     *service.ReportService
	history     domain.HistoryReader

	rng    domain.RandomSource
	closer io.Closer
	logger *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistory sets the history catalog instead of opening one from the configuration.
func WithHistory(reader domain.HistoryReader) LiteServerOption {
	return func(s *LiteServer) error {
		s.history = reader
		return nil
	}
}

// WithRandomSource fixes the estimator's jitter source.
func WithRandomSource(rng domain.RandomSource) LiteServerOption {
	return func(s *LiteServer) error {
		s.rng = rng
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(ctx context.Context, cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, err := litecfg.NewLogger(cfg.Logging())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if server.history == nil {
		if err := server.openHistory(ctx); err != nil {
			return nil, err
		}
	}

	if server.rng == nil {
		server.rng = service.NewSeededSource(cfg.Seed)
	}

	server.catalog = service.NewAlgorithmCatalog()
	server.predictions = service.NewPredictionService(
		service.NewThresholdRiskEstimator(server.logger, server.rng), server.catalog, server.logger)
	// Tool calls are synchronous; follow-up notices are returned right away.
	server.intake = service.NewIntakeService(server.logger, 0)
	server.uploads = service.NewUploadService(server.logger, 0)
	server.reports = service.NewReportService(server.catalog)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "cardiopredict-mcp-server",
		Version: Version,
	}, nil)

	server.registerTools()

	server.logger.WithField("history_backend", cfg.HistoryBackend).Info("Lite server initialized successfully")
	return server, nil
}

func (s *LiteServer) openHistory(ctx context.Context) error {
	switch s.config.HistoryBackend {
	case domain.HistoryBackendSQLite:
		if err := s.config.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := history.NewSQLiteStore(ctx, s.config.HistoryDBPath())
		if err != nil {
			return fmt.Errorf("failed to open history catalog: %w", err)
		}
		s.history, s.closer = store, store
	default:
		s.history = history.NewMemoryStore()
	}
	return nil
}

// Start serves MCP over stdio until ctx is canceled or the client disconnects.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting CardioPredict MCP Server (Lite)...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Connect serves a single session over t. Used with in-memory transports.
func (s *LiteServer) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history catalog")
			return err
		}
	}
	return nil
}
