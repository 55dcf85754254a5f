// Package api exposes the application over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/middleware"
	"github.com/cardiopredict-server/internal/notify"
	"github.com/cardiopredict-server/internal/service"
	"github.com/cardiopredict-server/internal/session"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Services are the components the handlers delegate to.
type Services struct {
	Catalog       *service.AlgorithmCatalog
	Predictions   *service.PredictionService
	Intake        *service.IntakeService
	Uploads       *service.UploadService
	Reports       *service.ReportService
	History       domain.HistoryReader
	Workspaces    *session.Manager
	Notifications *notify.Hub
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	svc           Services
	router        *gin.Engine
	server        *http.Server
	log           *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, svc Services, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	// Undelivered notices of a deleted workspace have nowhere to go.
	svc.Workspaces.OnDelete(svc.Notifications.Drop)

	server := &Server{
		configManager: configManager,
		svc:           svc,
		router:        router,
		log:           logger,
	}

	server.setupRoutes()

	return server
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	cfg := s.configManager.GetConfig()

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit)))
	}

	// Streaming endpoints are not bound by the request timeout
	v1.GET("/workspaces/:id/notifications", s.handleNotifications)

	api := v1.Group("", middleware.RequestTimeout(cfg.Server.RequestTimeout))
	{
		api.GET("/navigation", s.handleNavigation)

		api.GET("/algorithms", s.handleListAlgorithms)
		api.GET("/algorithms/comparison", s.handleComparison)
		api.GET("/algorithms/:id", s.handleGetAlgorithm)

		api.POST("/predictions", s.handlePredict)
		api.GET("/predictions/defaults", s.handlePredictionDefaults)

		api.POST("/patients", s.handleManualEntry)
		api.POST("/uploads", s.handleUpload)
		api.POST("/report", s.handleReport)

		api.GET("/history", s.handleListHistory)
		api.GET("/history/:id", s.handleGetHistory)
		api.GET("/statistics", s.handleStatistics)

		api.POST("/workspaces", s.handleCreateWorkspace)
		api.GET("/workspaces/:id", s.handleGetWorkspace)
		api.DELETE("/workspaces/:id", s.handleDeleteWorkspace)
		api.PUT("/workspaces/:id/route", s.handleNavigate)
		api.PUT("/workspaces/:id/tab", s.handleSelectTab)
		api.PUT("/workspaces/:id/algorithm", s.handleSelectAlgorithm)
		api.PATCH("/workspaces/:id/prediction-form", s.handleEditPredictionForm)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	cfg := s.configManager.GetConfig()
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC(),
		"version":         Version,
		"history_backend": cfg.History.Backend,
		"session_backend": cfg.Session.Backend,
	})
}
