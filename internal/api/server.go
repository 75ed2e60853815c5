package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	apimiddleware "github.com/ady24s/Cloud9/internal/api/middleware"
	"github.com/ady24s/Cloud9/internal/auth"
	"github.com/ady24s/Cloud9/internal/credentials"
	"github.com/ady24s/Cloud9/internal/ingest"
	"github.com/ady24s/Cloud9/internal/optimizer"
	"github.com/ady24s/Cloud9/internal/store"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	EnableCORS      bool
	AllowedOrigins  []string
	MaxBodySize     string
	JWTSecret       string
	JWTLeeway       time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		EnableCORS:      true,
		AllowedOrigins:  []string{"http://localhost:3000"},
		MaxBodySize:     "1M",
		JWTLeeway:       30 * time.Second,
	}
}

// Server represents the HTTP API server
type Server struct {
	echo     *echo.Echo
	config   *ServerConfig
	store    *store.Store
	creds    *credentials.Service
	sched    *ingest.Scheduler
	opt      *optimizer.Optimizer
	verifier *auth.Verifier
	log      *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	config *ServerConfig,
	st *store.Store,
	creds *credentials.Service,
	sched *ingest.Scheduler,
	opt *optimizer.Optimizer,
	log *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Disable Echo's default logger, we'll use our own
	e.Logger.SetOutput(io.Discard)

	// Set custom validator
	e.Validator = NewValidator()

	s := &Server{
		echo:     e,
		config:   config,
		store:    st,
		creds:    creds,
		sched:    sched,
		opt:      opt,
		verifier: auth.NewVerifier(config.JWTSecret, config.JWTLeeway),
		log:      log,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware stack
func (s *Server) setupMiddleware() {
	// Recover from panics
	s.echo.Use(middleware.Recover())

	// Request ID for tracing
	s.echo.Use(middleware.RequestID())

	// Logging middleware
	s.echo.Use(apimiddleware.Logger(s.log))

	// CORS if enabled
	if s.config.EnableCORS {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			ExposeHeaders:    []string{echo.HeaderContentLength},
		}))
	}

	// Body limit
	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readyCheck)

	// Everything under /api/v1 requires a valid bearer token
	v1 := s.echo.Group("/api/v1", auth.RequireAuth(s.verifier))

	userHandler := NewUserHandler(s.store.Users)
	v1.GET("/me", userHandler.Me)

	credHandler := NewCredentialHandler(s.creds)
	credGroup := v1.Group("/credentials")
	credGroup.POST("", credHandler.Upsert)
	credGroup.GET("", credHandler.List)
	credGroup.DELETE("/:provider", credHandler.Revoke)

	insightHandler := NewInsightHandler(s.store.Metrics)
	v1.GET("/insights", insightHandler.Get)
	v1.GET("/metrics", insightHandler.ListMetrics)

	recHandler := NewRecommendationHandler(s.opt)
	v1.GET("/recommendations", recHandler.List)
	v1.POST("/recommendations/retrain", recHandler.Retrain)

	ingestHandler := NewIngestHandler(s.sched)
	v1.POST("/ingest/sweep", ingestHandler.TriggerSweep)
}

// healthCheck returns basic health status
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readyCheck checks if server is ready to handle requests
func (s *Server) readyCheck(c echo.Context) error {
	// Check database connection
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Info("starting API server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
