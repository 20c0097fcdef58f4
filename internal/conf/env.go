// env.go: environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "VOICEID_DEBUG", validateEnvBool},
		{"model.bundlepath", "VOICEID_BUNDLE_PATH", validateEnvPath},

		{"webserver.host", "VOICEID_HOST", nil},
		{"webserver.port", "VOICEID_PORT", validateEnvPort},
		{"webserver.ingest", "VOICEID_INGEST", validateEnvIngest},
		{"webserver.tempdir", "VOICEID_TEMPDIR", validateEnvPath},
		{"webserver.maxconcurrent", "VOICEID_MAX_CONCURRENT", validateEnvNonNegativeInt},

		{"features.cache.enabled", "VOICEID_FEATURE_CACHE", validateEnvBool},
		{"audio.ffmpegpath", "VOICEID_FFMPEG_PATH", validateEnvPath},

		{"logging.defaultlevel", "VOICEID_LOG_LEVEL", validateEnvLogLevel},

		{"telemetry.enabled", "VOICEID_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.listen", "VOICEID_TELEMETRY_LISTEN", nil},
		{"sentry.enabled", "VOICEID_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "VOICEID_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvIngest(value string) error {
	switch strings.ToLower(value) {
	case IngestMemory, IngestTempFile:
		return nil
	default:
		return fmt.Errorf("ingest mode must be %q or %q", IngestMemory, IngestTempFile)
	}
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", value)
	}
}
