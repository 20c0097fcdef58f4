package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/features"
	"github.com/tphakala/voiceid/internal/speech"
)

// centroidRows renders n rows of width features, row i filled with i*step.
func centroidRows(n, width int, step float64) string {
	var sb strings.Builder
	for i := range n {
		vals := make([]string, width)
		for j := range vals {
			vals[j] = fmt.Sprintf("%.1f", float64(i)*step)
		}
		fmt.Fprintf(&sb, "    - [%s]\n", strings.Join(vals, ", "))
	}
	return sb.String()
}

// nearestZeroBundle always predicts the first class of each encoder.
func nearestZeroBundle() string {
	return "gender_model:\n  kind: centroid\n  centroids:\n" + centroidRows(2, features.DefaultLength, 1e6) +
		"region_model:\n  kind: centroid\n  centroids:\n" + centroidRows(4, features.DefaultLength, 1e6) +
		"le_gender:\n  classes: [female, male]\n" +
		"le_region:\n  classes: [Barishal, Chittagong, Dhaka, Sylhet]\n"
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeWAV(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "speaker.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	const sr = 22050
	data := make([]int, sr/2)
	for i := range data {
		data[i] = int(5000 * math.Sin(2*math.Pi*300*float64(i)/sr))
	}
	enc := wav.NewEncoder(f, sr, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sr},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func testSettings(bundlePath string) *conf.Settings {
	settings := &conf.Settings{}
	settings.Model.BundlePath = bundlePath
	settings.WebServer.Ingest = conf.IngestMemory
	return settings
}

func TestFileAnalysis(t *testing.T) {
	t.Parallel()

	settings := testSettings(writeFile(t, "bundle.yaml", []byte(nearestZeroBundle())))

	var out bytes.Buffer
	require.NoError(t, FileAnalysis(context.Background(), settings, writeWAV(t), &out))

	var got speech.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, speech.Result{Gender: "female", Region: "Barishal", FileName: "speaker.wav"}, got)
}

func TestFileAnalysisDegradedBundle(t *testing.T) {
	t.Parallel()

	settings := testSettings(filepath.Join(t.TempDir(), "absent.yaml"))

	var out bytes.Buffer
	err := FileAnalysis(context.Background(), settings, writeWAV(t), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, speech.ErrModelsNotLoaded)
	assert.Contains(t, err.Error(), "gender_model, region_model, le_gender, le_region")
	assert.Empty(t, out.String())
}

func TestFileAnalysisRejectsBadPaths(t *testing.T) {
	t.Parallel()

	settings := testSettings("")
	dir := t.TempDir()

	require.ErrorContains(t, FileAnalysis(context.Background(), settings, filepath.Join(dir, "nope.wav"), &bytes.Buffer{}), "error accessing file")
	require.ErrorContains(t, FileAnalysis(context.Background(), settings, dir, &bytes.Buffer{}), "is a directory")
	require.ErrorContains(t, FileAnalysis(context.Background(), settings, writeFile(t, "empty.wav", nil), &bytes.Buffer{}), "is empty")

	err := FileAnalysis(context.Background(), settings, writeFile(t, "notes.txt", []byte("hi")), &bytes.Buffer{})
	assert.EqualError(t, err, speech.MsgUnsupportedFormat)
}

func TestInspectBundleTable(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bundle.yaml", []byte("models:\n  coef: [[1, 2]]\n  intercept: [0]\ngender_encoder:\n  classes: [female, male]\n"))

	var out bytes.Buffer
	require.NoError(t, InspectBundle(path, &out, false, false))

	text := out.String()
	assert.Contains(t, text, "Available keys: models, gender_encoder")
	assert.Regexp(t, `gender_model\s+models\s+linear\s+loaded`, text)
	assert.Regexp(t, `region_model\s+-\s+-\s+missing`, text)
	assert.Contains(t, text, "Missing components: region_model, le_region")

	err := InspectBundle(path, &bytes.Buffer{}, false, true)
	require.ErrorIs(t, err, ErrBundleIncomplete)
	assert.Contains(t, err.Error(), "region_model, le_region")
}

func TestInspectBundleJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bundle.yaml", []byte(nearestZeroBundle()))

	var out bytes.Buffer
	require.NoError(t, InspectBundle(path, &out, true, true))

	var report BundleReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.Ready)
	assert.Empty(t, report.Missing)
	assert.Len(t, report.Slots, 4)
	assert.Empty(t, report.LoadError)
}

func TestInspectMissingBundle(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, InspectBundle(filepath.Join(t.TempDir(), "absent.yaml"), &out, false, false))
	assert.Contains(t, out.String(), "Load error: read model bundle")
}

func TestExtractorConfig(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	assert.Equal(t, features.DefaultConfig(), extractorConfig(settings))

	settings.Features.SampleRate = 8000
	settings.Features.NMFCC = 20
	settings.Features.Length = 40
	settings.Features.Cache.Enabled = true
	settings.Features.Cache.TTL = time.Minute
	settings.Audio.UseFfmpeg = true
	settings.Audio.FfmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")

	cfg := extractorConfig(settings)
	assert.Equal(t, 8000, cfg.SampleRate)
	assert.Equal(t, 20, cfg.NMFCC)
	assert.Equal(t, 40, cfg.Length)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.FfmpegPath, "an explicit path that does not exist disables ffmpeg")
}

func TestInitializeComponentsRejectsBadIngest(t *testing.T) {
	t.Parallel()

	settings := testSettings("")
	settings.WebServer.Ingest = "stream"
	_, err := initializeComponents(settings, nil)
	require.ErrorContains(t, err, "unknown ingest mode")
}
