package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildDefaults(t *testing.T) {
	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuildInheritsWrappedCategory(t *testing.T) {
	inner := New(NewStd("decode failed")).Category(CategoryAudio).Build()
	outer := New(fmt.Errorf("extract: %w", inner)).Component("features").Build()

	assert.Equal(t, CategoryAudio, outer.Category)
	assert.True(t, IsCategory(outer, CategoryAudio))
	assert.True(t, Is(outer, inner))
}

func TestContextHelpers(t *testing.T) {
	ee := New(NewStd("boom")).
		Category(CategoryFileIO).
		FileContext("/tmp/upload/clip.WAV", 2048).
		ModelContext("models/region.tflite", "tflite").
		Timing("decode", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "absolute-path", ctx["file_type"])
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
	assert.Equal(t, "tflite", ctx["model_file_extension"])
	assert.Equal(t, "tflite", ctx["model_kind"])
	assert.Equal(t, "decode", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	ctx["operation"] = "mutated"
	assert.Equal(t, "decode", ee.GetContext()["operation"], "GetContext must return a copy")
}

func TestCategorizeFileSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int64
		want string
	}{
		{512, "tiny"},
		{4096, "small"},
		{5 * 1024 * 1024, "medium"},
		{50 * 1024 * 1024, "large"},
		{500 * 1024 * 1024, "very-large"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeFileSize(tt.size), "size %d", tt.size)
	}
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := ValidationError("bad input")

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.Equal(t, CategoryValidation, ee.Category)
}

func TestErrorHooks(t *testing.T) {
	var seen []ErrorCategory
	AddErrorHook(func(ee *EnhancedError) { seen = append(seen, ee.Category) })
	t.Cleanup(ClearErrorHooks)

	_ = New(NewStd("a")).Category(CategoryInference).Build()
	_ = FileError(NewStd("b"), "clip.wav", 10)

	assert.Equal(t, []ErrorCategory{CategoryInference, CategoryFileIO}, seen)

	ClearErrorHooks()
	_ = New(NewStd("c")).Build()
	assert.Len(t, seen, 2)
	assert.False(t, hasActiveReporting.Load())
}

func TestScrubMessage(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
		absent   string
	}{
		{"url query", "fetch https://example.com/x?token=abc failed", "?[REDACTED]", "abc"},
		{"credential", "sentry dsn=https://key@host invalid", "dsn=[REDACTED]", "key@host"},
		{"path", "open /var/lib/voiceid/bundle.yaml: no such file", "[PATH]", "/var/lib"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScrubMessage(tt.in)
			assert.Contains(t, got, tt.contains)
			assert.NotContains(t, got, tt.absent)
		})
	}
}
