// Package analysis wires settings into the running service: it loads the
// model bundle, builds the feature extractor and prediction pipeline, and
// runs them behind the HTTP server or against a single local file.
package analysis

import (
	"fmt"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/features"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability"
	"github.com/tphakala/voiceid/internal/speech"
)

// GetLogger returns the analysis package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}

// Components are the long-lived objects built at startup.
type Components struct {
	Bundle    *bundle.Bundle
	Extractor *features.Extractor
	Pipeline  *speech.Pipeline
}

// extractorConfig maps feature and audio settings to an extractor config.
// Zero values keep the extractor defaults.
func extractorConfig(settings *conf.Settings) features.Config {
	cfg := features.DefaultConfig()
	if settings.Features.SampleRate > 0 {
		cfg.SampleRate = settings.Features.SampleRate
	}
	if settings.Features.NMFCC > 0 {
		cfg.NMFCC = settings.Features.NMFCC
	}
	if settings.Features.Length > 0 {
		cfg.Length = settings.Features.Length
	}
	cfg.CacheEnabled = settings.Features.Cache.Enabled
	if settings.Features.Cache.TTL > 0 {
		cfg.CacheTTL = settings.Features.Cache.TTL
	}
	if settings.Audio.UseFfmpeg {
		cfg.FfmpegPath = conf.ResolveFfmpegPath(settings.Audio.FfmpegPath)
	}
	return cfg
}

// initializeComponents loads the bundle and builds the pipeline. A missing
// or partial bundle is not an error: the pipeline is built degraded and
// predictions report the missing slots. m may be nil.
func initializeComponents(settings *conf.Settings, m *observability.Metrics) (*Components, error) {
	log := GetLogger()

	var (
		bundleOpts   []bundle.LoadOption
		extractOpts  []features.Option
		pipelineOpts []speech.Option
	)
	if m != nil {
		bundleOpts = append(bundleOpts, bundle.WithMetrics(m.Classifier))
		extractOpts = append(extractOpts, features.WithMetrics(m.Features))
		pipelineOpts = append(pipelineOpts, speech.WithMetrics(m.Classifier))
	}

	b, err := bundle.Load(settings.Model.BundlePath, bundleOpts...)
	if err != nil {
		log.Warn("model bundle not usable, continuing without models",
			logger.String("path", settings.Model.BundlePath),
			logger.Error(err))
	}

	cfg := extractorConfig(settings)
	extractor, err := features.NewExtractor(cfg, extractOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing feature extractor: %w", err)
	}
	if settings.Audio.UseFfmpeg && cfg.FfmpegPath == "" {
		log.Warn("ffmpeg requested but not found, using built-in decoders",
			logger.String("configured_path", settings.Audio.FfmpegPath))
	}

	pipeline, err := speech.New(extractor, b, speech.Config{
		Ingest:        settings.WebServer.Ingest,
		TempDir:       settings.WebServer.TempDir,
		MaxConcurrent: settings.WebServer.MaxConcurrent,
	}, pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing prediction pipeline: %w", err)
	}

	log.Info("prediction pipeline ready",
		logger.String("features", extractor.String()),
		logger.String("ingest", pipeline.Ingest()),
		logger.Bool("models_loaded", b.FullyLoaded()),
		logger.Bool("ffmpeg", cfg.FfmpegPath != ""))

	return &Components{Bundle: b, Extractor: extractor, Pipeline: pipeline}, nil
}
