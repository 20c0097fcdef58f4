// Package features turns audio clips into fixed-length MFCC statistic
// vectors.
//
// A clip is decoded to mono at the configured sample rate, its MFCCs are
// computed with a centered 2048-point STFT (hop 512) over 128 Slaney mel
// bands, and each coefficient is summarized by its mean and population
// standard deviation across frames. The concatenated vector is padded or
// truncated to the configured length and returned as a single-row batch.
package features

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/myaudio"
	"github.com/tphakala/voiceid/internal/observability/metrics"
)

const (
	DefaultSampleRate = 16000
	DefaultNMFCC      = 61
	DefaultLength     = 122
	DefaultCacheTTL   = 10 * time.Minute

	componentName = "features"
)

// Config controls the extraction transform.
type Config struct {
	SampleRate int
	NMFCC      int
	Length     int
	// FfmpegPath enables ffmpeg decoding for file input when non-empty.
	FfmpegPath   string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DefaultConfig returns the 16 kHz, 61-coefficient, 122-value transform.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		NMFCC:      DefaultNMFCC,
		Length:     DefaultLength,
		CacheTTL:   DefaultCacheTTL,
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMetrics records extraction metrics.
func WithMetrics(m *metrics.FeatureMetrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// Extractor computes feature vectors. It is safe for concurrent use.
type Extractor struct {
	cfg       Config
	transform *transform
	cache     *vectorCache
	metrics   *metrics.FeatureMetrics
	log       logger.Logger
}

// NewExtractor validates cfg and precomputes the filter banks.
func NewExtractor(cfg Config, opts ...Option) (*Extractor, error) {
	if cfg.SampleRate <= 0 || cfg.NMFCC <= 0 || cfg.Length <= 0 {
		return nil, errors.Newf("invalid feature config: samplerate=%d nmfcc=%d length=%d",
			cfg.SampleRate, cfg.NMFCC, cfg.Length).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.NMFCC > NMels {
		return nil, errors.Newf("nmfcc %d exceeds the %d mel bands", cfg.NMFCC, NMels).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := &Extractor{
		cfg:       cfg,
		transform: newTransform(cfg.SampleRate, cfg.NMFCC),
	}
	if cfg.CacheEnabled {
		e.cache = newVectorCache(cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module(componentName)
	}
	return e, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract computes the feature batch for an in-memory clip.
func (e *Extractor) Extract(ctx context.Context, data []byte, format myaudio.Format) (*mat.Dense, error) {
	start := time.Now()

	key := ""
	if e.cache != nil {
		key = cacheKey(data, format)
		if vec, ok := e.cache.get(key); ok {
			e.metrics.RecordCacheLookup(true)
			return e.batch(vec), nil
		}
		e.metrics.RecordCacheLookup(false)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio, err := myaudio.Decode(data, format, e.cfg.SampleRate)
	if err != nil {
		e.metrics.RecordExtraction(format.String(), time.Since(start).Seconds(), err)
		return nil, err
	}

	vec := e.Vector(audio)
	e.cache.set(key, vec)
	e.metrics.RecordExtraction(format.String(), time.Since(start).Seconds(), nil)
	return e.batch(vec), nil
}

// ExtractFile computes the feature batch for the clip at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*mat.Dense, error) {
	start := time.Now()
	format := myaudio.FormatFromFilename(path)

	audio, err := myaudio.DecodeFile(ctx, path, e.cfg.SampleRate, e.cfg.FfmpegPath)
	if err != nil {
		e.metrics.RecordExtraction(format.String(), time.Since(start).Seconds(), err)
		return nil, err
	}

	vec := e.Vector(audio)
	e.metrics.RecordExtraction(format.String(), time.Since(start).Seconds(), nil)
	return e.batch(vec), nil
}

// Vector computes the normalized feature vector of a decoded clip: the
// coefficient means followed by their standard deviations.
func (e *Extractor) Vector(audio *myaudio.Audio) []float64 {
	e.metrics.RecordAudioDuration(audio.Duration().Seconds())

	coeffs := e.transform.mfcc(audio.Samples)
	vec, direction := normalizeLength(summarize(coeffs), e.cfg.Length)
	if direction != "" {
		e.log.Debug("feature vector length normalized",
			logger.String("direction", direction),
			logger.Int("raw_length", 2*e.cfg.NMFCC),
			logger.Int("length", e.cfg.Length))
		e.metrics.RecordNormalization(direction)
	}
	return vec
}

func (e *Extractor) batch(vec []float64) *mat.Dense {
	return mat.NewDense(1, len(vec), vec)
}

// String describes the transform.
func (e *Extractor) String() string {
	return fmt.Sprintf("mfcc(sr=%d, n_mfcc=%d, n_fft=%d, hop=%d, n_mels=%d, length=%d)",
		e.cfg.SampleRate, e.cfg.NMFCC, NFFT, HopLength, NMels, e.cfg.Length)
}
