// Package speech implements the prediction pipeline: upload validation,
// feature extraction and classification.
//
// A Pipeline is built once at startup from an Extractor and a Bundle and is
// shared by all requests. It holds no mutable state besides the optional
// concurrency limiter.
package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/features"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/myaudio"
	"github.com/tphakala/voiceid/internal/observability/metrics"
)

const componentName = "speech"

// Upload is a client supplied audio clip.
type Upload struct {
	Filename string
	Content  io.Reader
	Size     int64
}

// Result is a successful prediction.
type Result struct {
	Gender   string `json:"gender"`
	Region   string `json:"region"`
	FileName string `json:"file_name"`
}

// Config selects the ingestion strategy.
type Config struct {
	// Ingest is conf.IngestMemory or conf.IngestTempFile.
	Ingest string
	// TempDir holds temp uploads; empty uses the OS default.
	TempDir string
	// MaxConcurrent bounds in-flight predictions; 0 is unlimited.
	MaxConcurrent int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics records per-slot inference metrics.
func WithMetrics(m *metrics.ClassifierMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline turns uploads into predictions.
type Pipeline struct {
	extractor  *features.Extractor
	bundle     *bundle.Bundle
	dispatcher *Dispatcher
	ingest     string
	tempDir    string
	sem        *semaphore.Weighted
	metrics    *metrics.ClassifierMetrics
	log        logger.Logger
}

// New builds a pipeline. The bundle may be degraded; predictions then fail
// with a MissingSlotsError.
func New(extractor *features.Extractor, b *bundle.Bundle, cfg Config, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("feature extractor is required")
	}
	if b == nil {
		b = bundle.New(nil, nil, nil, nil)
	}

	p := &Pipeline{
		extractor: extractor,
		bundle:    b,
		ingest:    cfg.Ingest,
		tempDir:   cfg.TempDir,
	}
	switch p.ingest {
	case "":
		p.ingest = conf.IngestMemory
	case conf.IngestMemory, conf.IngestTempFile:
	default:
		return nil, fmt.Errorf("unknown ingest mode %q", cfg.Ingest)
	}
	if cfg.MaxConcurrent > 0 {
		p.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Global().Module(componentName)
	}
	p.dispatcher = NewDispatcher(b, p.metrics)
	return p, nil
}

// Bundle returns the model bundle.
func (p *Pipeline) Bundle() *bundle.Bundle {
	return p.bundle
}

// Ingest returns the active ingestion mode.
func (p *Pipeline) Ingest() string {
	return p.ingest
}

// Predict validates the upload, extracts its features and classifies them.
// Errors are *PredictError values.
func (p *Pipeline) Predict(ctx context.Context, upload Upload) (*Result, error) {
	if upload.Content == nil {
		return nil, validationError(MsgNoAudio)
	}
	if !myaudio.IsSupportedExtension(upload.Filename) {
		return nil, validationError(MsgUnsupportedFormat)
	}

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, &PredictError{Stage: StageBusy, Err: errors.New(err).
				Component(componentName).
				Category(errors.CategoryLimit).
				Build()}
		}
		defer p.sem.Release(1)
	}

	start := time.Now()
	x, err := p.extract(ctx, upload)
	if err != nil {
		p.log.Warn("feature extraction failed",
			logger.String("file_name", upload.Filename),
			logger.Error(err))
		return nil, &PredictError{Stage: StageExtraction, Err: err}
	}
	extracted := time.Since(start)

	gender, region, err := p.dispatcher.Classify(ctx, x)
	if err != nil {
		p.log.Warn("prediction failed",
			logger.String("file_name", upload.Filename),
			logger.Error(err))
		return nil, &PredictError{Stage: StageInference, Err: err}
	}

	p.log.Debug("prediction complete",
		logger.String("file_name", upload.Filename),
		logger.String("ingest", p.ingest),
		logger.Duration("extract_duration", extracted),
		logger.Duration("total_duration", time.Since(start)))

	return &Result{Gender: gender, Region: region, FileName: upload.Filename}, nil
}

// ExtractFeatures runs only the extraction step for the upload.
func (p *Pipeline) ExtractFeatures(ctx context.Context, upload Upload) (*mat.Dense, error) {
	if !myaudio.IsSupportedExtension(upload.Filename) {
		return nil, validationError(MsgUnsupportedFormat)
	}
	return p.extract(ctx, upload)
}

func (p *Pipeline) extract(ctx context.Context, upload Upload) (*mat.Dense, error) {
	if p.ingest == conf.IngestTempFile {
		return p.extractViaTempFile(ctx, upload)
	}

	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read upload: %w", err)).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Build()
	}
	return p.extractor.Extract(ctx, data, myaudio.FormatFromFilename(upload.Filename))
}

// extractViaTempFile writes the upload to a temp file with the upload's
// extension and extracts from its path. The file is removed on every exit
// path; removal errors are only logged.
func (p *Pipeline) extractViaTempFile(ctx context.Context, upload Upload) (*mat.Dense, error) {
	tmp, err := os.CreateTemp(p.tempDir, "voiceid-upload-*"+string(myaudio.FormatFromFilename(upload.Filename)))
	if err != nil {
		return nil, errors.New(fmt.Errorf("create temp file: %w", err)).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Build()
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.log.Debug("failed to remove temp upload", logger.String("path", path), logger.Error(err))
		}
	}()

	written, err := io.Copy(tmp, upload.Content)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("write temp file: %w", err)).
			Component(componentName).
			Category(errors.CategoryFileIO).
			FileContext(path, written).
			Build()
	}

	return p.extractor.ExtractFile(ctx, path)
}
