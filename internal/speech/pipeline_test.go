package speech

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/features"
	"github.com/tphakala/voiceid/internal/logger"
)

var (
	genderLabels = []string{"female", "male"}
	regionLabels = []string{"Barishal", "Chittagong", "Dhaka", "Sylhet"}
)

// fakeClassifier returns fixed ids and records the width it was given.
type fakeClassifier struct {
	ids  []int
	err  error
	cols int
}

func (f *fakeClassifier) Predict(x mat.Matrix) ([]int, error) {
	_, f.cols = x.Dims()
	return f.ids, f.err
}

// trackingReader records whether the upload body was consumed.
type trackingReader struct {
	r    io.Reader
	read bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	t.read = true
	return t.r.Read(p)
}

func testWAV(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	const sr = 16000
	data := make([]int, sr/2)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*180*float64(i)/sr))
	}
	enc := wav.NewEncoder(f, sr, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sr},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func testBundle(t *testing.T, gender, region bundle.Classifier) *bundle.Bundle {
	t.Helper()

	ge, err := bundle.NewLabelEncoder(genderLabels)
	require.NoError(t, err)
	re, err := bundle.NewLabelEncoder(regionLabels)
	require.NoError(t, err)
	return bundle.New(gender, region, ge, re)
}

func newTestPipeline(t *testing.T, b *bundle.Bundle, cfg Config) *Pipeline {
	t.Helper()

	extractor, err := features.NewExtractor(features.DefaultConfig(), features.WithLogger(logger.NewNop()))
	require.NoError(t, err)
	p, err := New(extractor, b, cfg, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	return p
}

func TestPredictSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, mode := range []string{conf.IngestMemory, conf.IngestTempFile} {
		t.Run(mode, func(t *testing.T) {
			gender := &fakeClassifier{ids: []int{1}}
			region := &fakeClassifier{ids: []int{2}}
			tempDir := t.TempDir()
			p := newTestPipeline(t, testBundle(t, gender, region), Config{Ingest: mode, TempDir: tempDir})

			res, err := p.Predict(context.Background(), Upload{
				Filename: "Speaker_01.WAV",
				Content:  bytes.NewReader(testWAV(t)),
			})
			require.NoError(t, err)

			assert.Equal(t, &Result{Gender: "male", Region: "Dhaka", FileName: "Speaker_01.WAV"}, res)
			assert.Contains(t, genderLabels, res.Gender)
			assert.Contains(t, regionLabels, res.Region)
			assert.Equal(t, features.DefaultLength, gender.cols)
			assert.Equal(t, features.DefaultLength, region.cols)

			entries, err := os.ReadDir(tempDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "temp uploads must be removed")
		})
	}
}

func TestPredictRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testBundle(t, &fakeClassifier{ids: []int{0}}, &fakeClassifier{ids: []int{0}}), Config{})

	for _, name := range []string{"notes.txt", "clip.m4a", "noextension"} {
		body := &trackingReader{r: bytes.NewReader(testWAV(t))}
		_, err := p.Predict(context.Background(), Upload{Filename: name, Content: body})

		var perr *PredictError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, StageValidation, perr.Stage)
		assert.Equal(t, MsgUnsupportedFormat, perr.Error())
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		assert.False(t, body.read, "no extraction is attempted for %s", name)
	}
}

func TestPredictWithoutContent(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil, Config{})
	_, err := p.Predict(context.Background(), Upload{Filename: "clip.wav"})

	var perr *PredictError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageValidation, perr.Stage)
	assert.Equal(t, MsgNoAudio, perr.Error())
}

func TestPredictExtractionFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, mode := range []string{conf.IngestMemory, conf.IngestTempFile} {
		t.Run(mode, func(t *testing.T) {
			tempDir := t.TempDir()
			p := newTestPipeline(t, testBundle(t, &fakeClassifier{ids: []int{0}}, &fakeClassifier{ids: []int{0}}),
				Config{Ingest: mode, TempDir: tempDir})

			_, err := p.Predict(context.Background(), Upload{
				Filename: "broken.flac",
				Content:  bytes.NewReader([]byte("definitely not flac")),
			})

			var perr *PredictError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, StageExtraction, perr.Stage)
			assert.Contains(t, perr.Error(), "Feature extraction failed: ")

			entries, err := os.ReadDir(tempDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "temp uploads must be removed on failure")
		})
	}
}

func TestPredictMissingSlots(t *testing.T) {
	t.Parallel()

	ge, err := bundle.NewLabelEncoder(genderLabels)
	require.NoError(t, err)

	tests := []struct {
		name    string
		bundle  *bundle.Bundle
		missing string
	}{
		{"region artifacts", bundle.New(&fakeClassifier{ids: []int{0}}, nil, ge, nil), "region_model, le_region"},
		{"everything", nil, "gender_model, region_model, le_gender, le_region"},
		{"gender encoder", bundle.New(&fakeClassifier{}, &fakeClassifier{}, nil, ge), "le_gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestPipeline(t, tt.bundle, Config{})
			_, err := p.Predict(context.Background(), Upload{Filename: "clip.wav", Content: bytes.NewReader(testWAV(t))})

			var perr *PredictError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, StageInference, perr.Stage)
			assert.Contains(t, perr.Error(), "Prediction failed: models not loaded")
			assert.Contains(t, perr.Error(), "missing: "+tt.missing)
			assert.ErrorIs(t, err, ErrModelsNotLoaded)

			var missing *MissingSlotsError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.missing, bundle.SlotNames(missing.Slots))
		})
	}
}

func TestPredictInferenceFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		gender *fakeClassifier
		region *fakeClassifier
		want   string
	}{
		{"classifier error", &fakeClassifier{err: errors.NewStd("boom")}, &fakeClassifier{ids: []int{0}}, "Prediction failed: gender_model: boom"},
		{"empty output", &fakeClassifier{ids: []int{0}}, &fakeClassifier{ids: []int{}}, "Prediction failed: region_model: classifier returned no prediction"},
		{"unseen label", &fakeClassifier{ids: []int{5}}, &fakeClassifier{ids: []int{0}}, "Prediction failed: gender_model: y contains previously unseen labels: [5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestPipeline(t, testBundle(t, tt.gender, tt.region), Config{})
			_, err := p.Predict(context.Background(), Upload{Filename: "clip.wav", Content: bytes.NewReader(testWAV(t))})
			require.EqualError(t, err, tt.want)
			assert.True(t, errors.IsCategory(err, errors.CategoryInference))
		})
	}
}

func TestPredictConcurrencyLimit(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testBundle(t, &fakeClassifier{ids: []int{0}}, &fakeClassifier{ids: []int{0}}), Config{MaxConcurrent: 1})
	require.NoError(t, p.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Predict(ctx, Upload{Filename: "clip.wav", Content: bytes.NewReader(testWAV(t))})

	var perr *PredictError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageBusy, perr.Stage)

	p.sem.Release(1)
	_, err = p.Predict(context.Background(), Upload{Filename: "clip.wav", Content: bytes.NewReader(testWAV(t))})
	require.NoError(t, err)
}

func TestNewRejectsUnknownIngestMode(t *testing.T) {
	t.Parallel()

	extractor, err := features.NewExtractor(features.DefaultConfig())
	require.NoError(t, err)

	_, err = New(extractor, nil, Config{Ingest: "s3"})
	require.Error(t, err)

	_, err = New(nil, nil, Config{})
	require.Error(t, err)

	p, err := New(extractor, nil, Config{}, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, conf.IngestMemory, p.Ingest())
	assert.False(t, p.Bundle().FullyLoaded())
}

func TestExtractFeaturesShape(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil, Config{})
	x, err := p.ExtractFeatures(context.Background(), Upload{Filename: "clip.wav", Content: bytes.NewReader(testWAV(t))})
	require.NoError(t, err)

	rows, cols := x.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 122, cols)
}
