// Package api serves the clinic over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/domain"
	"github.com/EcliqseX/vetsim/internal/ledger"
	"github.com/EcliqseX/vetsim/internal/metrics"
	"github.com/EcliqseX/vetsim/internal/middleware"
	"github.com/EcliqseX/vetsim/internal/session"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Deps are the collaborators the server routes requests to. Ledger and
// Metrics are optional.
type Deps struct {
	Registry *session.Registry
	Ledger   ledger.Store
	Metrics  *metrics.Metrics
	Hub      *Hub
	Logger   *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Deps
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	switch {
	case gin.Mode() == gin.TestMode:
	case cfg.Logging.Level == "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	server := &Server{
		configManager: configManager,
		deps:          deps,
		log:           deps.Logger,
		router:        router,
	}

	server.setupRoutes(cfg)

	return server, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
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
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.deps.Hub.Close()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg *domain.Config) {
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil && cfg.Metrics.Enabled {
		s.router.GET(cfg.Metrics.Path, gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit))
	{
		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.DELETE("/sessions/:id", s.handleDeleteSession)
		v1.POST("/sessions/:id/next", s.handleNextPatient)
		v1.POST("/sessions/:id/tests/:test", s.handleRunTest)
		v1.POST("/sessions/:id/diagnosis", s.handleDiagnosis)
		v1.POST("/sessions/:id/treatment", s.handleTreatment)
		v1.GET("/sessions/:id/events", s.handleEvents)

		v1.GET("/catalog/diseases", s.handleListDiseases)
		v1.GET("/catalog/tests", s.handleListTests)

		v1.GET("/ledger", s.handleListLedger)
		v1.GET("/ledger/stats", s.handleLedgerStats)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	sessions, err := s.deps.Registry.Len(c.Request.Context())
	status, code := "healthy", http.StatusOK
	if err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"sessions":  sessions,
		"ledger":    s.deps.Ledger != nil,
	})
}
