package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability/metrics"
)

// Endpoint serves Prometheus metrics on a dedicated listener.
type Endpoint struct {
	server        *http.Server
	listener      net.Listener
	listenAddress string
	metrics       *Metrics
	log           logger.Logger
}

// NewEndpoint creates a telemetry endpoint. It returns an error when
// telemetry is disabled in the settings.
func NewEndpoint(settings *conf.Settings, m *Metrics) (*Endpoint, error) {
	if !settings.Telemetry.Enabled {
		return nil, fmt.Errorf("telemetry not enabled in settings")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required")
	}

	return &Endpoint{
		listenAddress: settings.Telemetry.Listen,
		metrics:       m,
		log:           logger.Global().Module("telemetry"),
	}, nil
}

// Start binds the listener and serves metrics until ctx is cancelled.
// The returned channel is closed once the server has stopped.
func (e *Endpoint) Start(ctx context.Context) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return nil, fmt.Errorf("telemetry listen on %s: %w", e.listenAddress, err)
	}
	e.listener = listener

	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.log.Info("Telemetry endpoint starting", logger.String("address", listener.Addr().String()))
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("Telemetry HTTP server error", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		e.log.Info("Stopping telemetry server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metrics.ShutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			e.log.Error("Telemetry server shutdown error", logger.Error(err))
		}
	}()

	return done, nil
}

// Addr returns the bound listener address, or nil before Start.
func (e *Endpoint) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
