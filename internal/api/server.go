package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/voiceid/internal/api/middleware"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability"
	"github.com/tphakala/voiceid/internal/speech"
)

// Server is the voiceid HTTP server.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	pipeline *speech.Pipeline
	metrics  *observability.Metrics
	log      logger.Logger
	access   logger.Logger

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger overrides the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithAccessLogger overrides the request logger.
func WithAccessLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.access = l
	}
}

// WithMetrics sets the metrics instance for HTTP and upload metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server serving the given pipeline.
func New(settings *conf.Settings, pipeline *speech.Pipeline, opts ...ServerOption) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("prediction pipeline is required")
	}
	if settings == nil {
		settings = &conf.Settings{}
	}

	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		settings:  settings,
		pipeline:  pipeline,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	if s.access == nil {
		s.access = logger.Global().Module("api.access")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.String("ingest", pipeline.Ingest()),
		logger.Bool("models_loaded", pipeline.Bundle().FullyLoaded()))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.access))

	s.echo.Use(mw.NewMetrics(s.httpMetrics()))

	security := mw.DefaultSecurityConfig()
	security.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewSecureHeaders())
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.info)
	s.echo.GET("/api/info", s.info)
	s.echo.GET("/health", s.health)

	var predictMW []echo.MiddlewareFunc
	if s.config.RateLimit > 0 {
		predictMW = append(predictMW, mw.NewRateLimiter(s.config.RateLimit, 0))
	}
	s.echo.POST("/predict", s.predict, predictMW...)
}

// errorHandler renders every error as {"detail": message}.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	} else if s.config.Debug {
		detail = err.Error()
	}

	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("path", c.Path()),
			logger.Int("status", code),
			logger.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Detail: detail})
	}
	if err != nil {
		s.log.Debug("failed to write error response", logger.Error(err))
	}
}

// Start begins serving HTTP requests in a background goroutine.
// Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.log.Error("server error", logger.Error(err))
		}
	}()
}

// startBlocking serves HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()
	s.log.Info("starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown serves until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		s.log.Info("shutdown signal received, initiating graceful shutdown")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server and releases the model bundle.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := s.pipeline.Bundle().Close(); err != nil {
		s.log.Warn("failed to release model bundle", logger.Error(err))
	}

	s.log.Info("server shutdown complete",
		logger.Duration("uptime", time.Since(s.startTime)))
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the resolved server configuration.
func (s *Server) Config() *Config {
	return s.config
}
