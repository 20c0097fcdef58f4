// Package telemetry provides opt-in, privacy-scrubbed error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/logger"
)

const flushTimeout = 2 * time.Second

// InitSentry initializes the Sentry SDK and installs the error reporter.
// It does nothing unless Sentry is explicitly enabled.
func InitSentry(settings *conf.Settings) error {
	log := logger.Global().Module("telemetry")

	if !settings.Sentry.Enabled {
		log.Debug("Sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Environment:      settings.Sentry.Environment,
		Release:          fmt.Sprintf("voiceid@%s", settings.Version),
		SampleRate:       1.0,
		AttachStacktrace: false,
		ServerName:       "",
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	errors.SetTelemetryReporter(NewSentryReporter(true))
	log.Info("Sentry telemetry initialized", logger.String("environment", settings.Sentry.Environment))
	return nil
}

// Flush waits for buffered events to be delivered.
func Flush() {
	sentry.Flush(flushTimeout)
}

// applyPrivacyFilters strips host identifying data from every event.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// SentryReporter implements errors.TelemetryReporter for Sentry.
type SentryReporter struct {
	enabled bool
	capture func(*sentry.Event)
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
		capture: func(event *sentry.Event) { sentry.CaptureEvent(event) },
	}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError sends an enhanced error to Sentry. Validation errors are
// client mistakes and are not reported.
func (sr *SentryReporter) ReportError(ee *errors.EnhancedError) {
	if !sr.enabled || ee.IsReported() || ee.Category == errors.CategoryValidation {
		return
	}
	sr.capture(buildEvent(ee))
	ee.MarkReported()
}

func buildEvent(ee *errors.EnhancedError) *sentry.Event {
	title := generateErrorTitle(ee)
	message := errors.ScrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))

	event := sentry.NewEvent()
	event.Message = message
	event.Level = getErrorLevel(ee.Category)
	event.Fingerprint = []string{title, ee.Component, string(ee.Category)}
	event.Tags = map[string]string{
		"component":  ee.Component,
		"category":   string(ee.Category),
		"error_type": fmt.Sprintf("%T", errors.Unwrap(ee)),
	}
	for key, value := range ee.GetContext() {
		if s, ok := value.(string); ok {
			value = errors.ScrubMessage(s)
		}
		event.Extra[key] = value
	}
	event.Exception = []sentry.Exception{{Type: title, Value: message}}
	return event
}

// generateErrorTitle builds a grouping title such as "Bundle Model Loading Error".
func generateErrorTitle(ee *errors.EnhancedError) string {
	var parts []string
	if ee.Component != "" && ee.Component != errors.ComponentUnknown {
		parts = append(parts, titleCase(ee.Component))
	}
	parts = append(parts, formatCategoryForTitle(ee.Category))
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		words := strings.Fields(strings.ReplaceAll(op, "_", " "))
		for i, w := range words {
			words[i] = titleCase(w)
		}
		parts = append(parts, strings.Join(words, " "))
	}
	return strings.Join(parts, " ")
}

func formatCategoryForTitle(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryAudio, errors.CategoryAudioDecode:
		return "Audio Processing Error"
	case errors.CategoryModelLoad:
		return "Model Loading Error"
	case errors.CategoryModelInit:
		return "Model Initialization Error"
	case errors.CategoryInference:
		return "Inference Error"
	case errors.CategoryFileIO:
		return "File I/O Error"
	case errors.CategoryConfiguration:
		return "Configuration Error"
	case errors.CategoryCommand:
		return "Command Execution Error"
	default:
		return "Error"
	}
}

func getErrorLevel(category errors.ErrorCategory) sentry.Level {
	switch category {
	case errors.CategoryModelLoad, errors.CategoryModelInit, errors.CategoryConfiguration:
		return sentry.LevelError
	case errors.CategoryAudio, errors.CategoryAudioDecode, errors.CategoryFileIO, errors.CategoryCommand:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}
