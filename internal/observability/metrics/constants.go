// Package metrics provides custom Prometheus metrics for voiceid.
package metrics

import "time"

// Outcome label values shared by all counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Normalization directions for the feature length post-condition.
const (
	NormalizePad      = "pad"
	NormalizeTruncate = "truncate"
)

// ShutdownTimeout bounds the graceful shutdown of the metrics listener.
const ShutdownTimeout = 5 * time.Second

const namespace = "voiceid"
