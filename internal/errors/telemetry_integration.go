// Package errors - telemetry integration (optional)
package errors

import (
	"regexp"
	"sync"
	"sync/atomic"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// ErrorHook is called synchronously for every built error while reporting is active.
type ErrorHook func(ee *EnhancedError)

var (
	reporterMu      sync.RWMutex
	telemetry       TelemetryReporter
	errorHooks      []ErrorHook
	privacyScrubber func(string) string

	// hasActiveReporting lets Build skip all reporting work when nothing listens.
	hasActiveReporting atomic.Bool
)

// SetTelemetryReporter sets the global telemetry reporter. A nil reporter
// disables telemetry.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	telemetry = reporter
	updateActiveReporting()
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return telemetry
}

// AddErrorHook registers a hook invoked for every built error.
func AddErrorHook(hook ErrorHook) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	errorHooks = append(errorHooks, hook)
	updateActiveReporting()
}

// ClearErrorHooks removes all registered error hooks
func ClearErrorHooks() {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	errorHooks = nil
	updateActiveReporting()
}

// updateActiveReporting must be called with reporterMu held.
func updateActiveReporting() {
	active := len(errorHooks) > 0 || (telemetry != nil && telemetry.IsEnabled())
	hasActiveReporting.Store(active)
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	reporter := telemetry
	hooks := errorHooks
	reporterMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// SetPrivacyScrubber sets the function applied to messages before they leave the process.
func SetPrivacyScrubber(scrubber func(string) string) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	privacyScrubber = scrubber
}

var (
	urlQueryRegex  = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	filePathRegex  = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[/\\][\w.\-]+){2,}`)
	credentialLike = regexp.MustCompile(`(?i)(dsn|token|api[_-]?key|password)[=:]\S+`)
)

// ScrubMessage removes URL query strings, credentials and file system paths
// from a message.
func ScrubMessage(message string) string {
	reporterMu.RLock()
	scrubber := privacyScrubber
	reporterMu.RUnlock()
	if scrubber != nil {
		return scrubber(message)
	}

	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = credentialLike.ReplaceAllString(scrubbed, "$1=[REDACTED]")
	return filePathRegex.ReplaceAllString(scrubbed, "[PATH]")
}
