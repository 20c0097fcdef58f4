// config.go: application settings for voiceid
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/voiceid/internal/logger"
)

// Upload ingestion modes
const (
	// IngestMemory hands the uploaded bytes straight to the in-process decoders.
	IngestMemory = "memory"
	// IngestTempFile persists the upload to a temporary file and decodes from its path.
	IngestTempFile = "tempfile"
)

// ModelSettings locates the serialized model bundle.
type ModelSettings struct {
	BundlePath string // path to the bundle document (YAML or JSON)
}

// FeatureCacheSettings controls the optional feature vector cache.
type FeatureCacheSettings struct {
	Enabled bool          // true to cache feature vectors by audio content hash
	TTL     time.Duration // lifetime of a cached vector
}

// FeatureSettings holds the MFCC extraction parameters.
type FeatureSettings struct {
	SampleRate int // target sample rate in Hz
	NMFCC      int // number of MFCC coefficients per frame
	Length     int // final feature vector length after pad/truncate
	Cache      FeatureCacheSettings
}

// AudioSettings controls audio decoding.
type AudioSettings struct {
	FfmpegPath string // explicit ffmpeg binary, empty to look up on PATH
	UseFfmpeg  bool   // decode temp files with ffmpeg when it is available
}

// WebServerSettings holds HTTP server settings.
type WebServerSettings struct {
	Host            string
	Port            string
	Ingest          string   // memory or tempfile
	TempDir         string   // directory for temp uploads, empty for the OS default
	BodyLimit       string   // maximum request body, echo size notation ("25M")
	MaxConcurrent   int      // concurrent predictions, 0 for unlimited
	RateLimit       float64  // requests per second per client on /predict, 0 disables
	AllowedOrigins  []string // CORS origins
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// TelemetrySettings controls the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool
	Listen  string // host:port for the metrics listener
}

// SentrySettings controls opt-in error reporting.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// Settings contains all configuration options for voiceid.
type Settings struct {
	Debug bool // true to enable debug logging

	// Runtime values, not stored in config file
	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`

	Main struct {
		Name string // instance name reported by the info endpoint
	}

	Model     ModelSettings
	Features  FeatureSettings
	Audio     AudioSettings
	WebServer WebServerSettings
	Telemetry TelemetrySettings
	Sentry    SentrySettings
	Logging   logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a new Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func load(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if settings.Debug && settings.Logging.DefaultLevel != "trace" {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults and environment bindings, then reads the
// config file. A missing config file is not an error.
func initViper(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetSettings returns the settings loaded by Load, or nil before Load ran.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Address returns the host:port the web server listens on.
func (s *WebServerSettings) Address() string {
	return s.Host + ":" + s.Port
}
