// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateModelSettings(&settings.Model); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateFeatureSettings(&settings.Features); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	if strings.TrimSpace(settings.BundlePath) == "" {
		return fmt.Errorf("model bundle path must not be empty")
	}
	return nil
}

func validateFeatureSettings(settings *FeatureSettings) error {
	var errs []string

	if settings.SampleRate < 1000 {
		errs = append(errs, fmt.Sprintf("feature sample rate must be at least 1000 Hz, got %d", settings.SampleRate))
	}
	if settings.NMFCC < 1 || settings.NMFCC > 128 {
		errs = append(errs, fmt.Sprintf("number of MFCC coefficients must be between 1 and 128, got %d", settings.NMFCC))
	}
	if settings.Length < 1 {
		errs = append(errs, fmt.Sprintf("feature vector length must be positive, got %d", settings.Length))
	}
	if settings.Cache.Enabled && settings.Cache.TTL <= 0 {
		errs = append(errs, "feature cache TTL must be positive when the cache is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("feature settings errors: %v", errs)
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid web server port %q", settings.Port))
	}

	settings.Ingest = strings.ToLower(strings.TrimSpace(settings.Ingest))
	if settings.Ingest != IngestMemory && settings.Ingest != IngestTempFile {
		errs = append(errs, fmt.Sprintf("invalid ingest mode %q, must be %q or %q", settings.Ingest, IngestMemory, IngestTempFile))
	}

	if _, err := bytes.Parse(settings.BodyLimit); err != nil {
		errs = append(errs, fmt.Sprintf("invalid body limit %q: %v", settings.BodyLimit, err))
	}

	if settings.MaxConcurrent < 0 {
		errs = append(errs, fmt.Sprintf("max concurrent predictions must not be negative, got %d", settings.MaxConcurrent))
	}
	if settings.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("rate limit must not be negative, got %g", settings.RateLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("web server settings errors: %v", errs)
	}
	return nil
}

func validateTelemetrySettings(settings *TelemetrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("invalid telemetry listen address %q: %w", settings.Listen, err)
	}
	return nil
}
