package analysis

import (
	"context"
	"fmt"

	"github.com/tphakala/voiceid/internal/api"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability"
	"github.com/tphakala/voiceid/internal/telemetry"
)

// Serve starts the prediction API and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Serve(ctx context.Context, settings *conf.Settings) error {
	log := GetLogger()

	if err := telemetry.InitSentry(settings); err != nil {
		log.Warn("error reporting disabled", logger.Error(err))
	}
	defer telemetry.Flush()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	components, err := initializeComponents(settings, metrics)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var telemetryDone <-chan struct{}
	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return fmt.Errorf("error initializing telemetry endpoint: %w", err)
		}
		if telemetryDone, err = endpoint.Start(ctx); err != nil {
			return err
		}
	}

	server, err := api.New(settings, components.Pipeline, api.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("error initializing HTTP server: %w", err)
	}

	log.Info("starting voiceid",
		logger.String("version", settings.Version),
		logger.String("address", server.Config().Address()))

	err = server.StartWithGracefulShutdown(ctx)

	cancel()
	if telemetryDone != nil {
		<-telemetryDone
	}
	return err
}
