package myaudio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/errors"
)

func TestIsSupportedExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"clip.wav", true},
		{"clip.WAV", true},
		{"clip.Mp3", true},
		{"clip.flac", true},
		{"clip.ogg", true},
		{"archive.tar.ogg", true},
		{"notes.txt", false},
		{"clip.m4a", false},
		{"wav", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsSupportedExtension(tt.name))
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatFLAC, FormatFromFilename("/tmp/upload-123.FLAC"))
	assert.Equal(t, "mp3", FormatMP3.String())
	assert.Len(t, SupportedFormats(), 4)
}

func TestDecodeWAVMonoAtTargetRate(t *testing.T) {
	t.Parallel()

	data := sine(16000, 16000, 440, 0.5)
	a, err := Decode(testWAVBytes(t, 16000, 1, data), FormatWAV, 16000)
	require.NoError(t, err)

	require.Len(t, a.Samples, len(data))
	assert.Equal(t, 16000, a.SampleRate)
	assert.Equal(t, 1, a.SourceChannels)
	assert.Equal(t, time.Second, a.Duration())
	for i := range 100 {
		assert.InDelta(t, float64(data[i])/32768.0, a.Samples[i], 1e-9)
	}
}

func TestDecodeWAVStereoIsAveraged(t *testing.T) {
	t.Parallel()

	const frames = 1600
	data := make([]int, 0, frames*2)
	for range frames {
		data = append(data, 1000, 3000)
	}

	a, err := Decode(testWAVBytes(t, 16000, 2, data), FormatWAV, 16000)
	require.NoError(t, err)

	require.Len(t, a.Samples, frames)
	assert.Equal(t, 2, a.SourceChannels)
	for _, v := range a.Samples {
		assert.InDelta(t, 2000.0/32768.0, v, 1e-9)
	}
}

func TestDecodeWAVResamplesToTarget(t *testing.T) {
	t.Parallel()

	data := sine(8000, 8000, 300, 0.3)
	a, err := Decode(testWAVBytes(t, 8000, 1, data), FormatWAV, 16000)
	require.NoError(t, err)

	require.Len(t, a.Samples, 16000)
	assert.Equal(t, 8000, a.SourceRate)
	assert.Equal(t, 16000, a.SampleRate)

	// Output sample i sits at source time i/2; the waveform must line up
	// with the tone and keep its tail.
	for i := 200; i < len(a.Samples)-200; i++ {
		want := 0.3 * math.Sin(2*math.Pi*300*float64(i)/16000)
		if !assert.InDelta(t, want, a.Samples[i], 0.03, "sample %d", i) {
			break
		}
	}
}

func TestResampleMonoIsAlignedAndKeepsTail(t *testing.T) {
	t.Parallel()

	const (
		inRate  = 44100
		outRate = 16000
		freq    = 100.0
		amp     = 0.5
	)
	input := make([]float64, inRate)
	for i := range input {
		input[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/inRate)
	}

	out, err := resampleMono(input, inRate, outRate)
	require.NoError(t, err)
	require.Len(t, out, outRate)

	ideal := func(i int) float64 { return amp * math.Sin(2*math.Pi*freq*float64(i)/outRate) }

	for i := 150; i < len(out)-150; i++ {
		if !assert.InDelta(t, ideal(i), out[i], 0.02, "sample %d", i) {
			break
		}
	}

	// The last 17 ms hold real signal, not padding.
	var tailPeak float64
	for _, v := range out[len(out)-271:] {
		tailPeak = math.Max(tailPeak, math.Abs(v))
	}
	assert.Greater(t, tailPeak, 0.4)

	again, err := resampleMono(input, inRate, outRate)
	require.NoError(t, err)
	assert.Equal(t, out, again, "cached delay gives identical output")
}

func TestResamplerDelayIsCached(t *testing.T) {
	t.Parallel()

	d1, err := resamplerDelay(48000, 16000)
	require.NoError(t, err)
	d2, err := resamplerDelay(48000, 16000)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.GreaterOrEqual(t, d1, 0)

	_, ok := resamplerDelays.Load(ratePair{48000, 16000})
	assert.True(t, ok)
}

func TestDecodeFixtures(t *testing.T) {
	t.Parallel()

	tone := func(amp, freq float64, rate int, tol float64) func(*testing.T, []float64) {
		return func(t *testing.T, samples []float64) {
			t.Helper()
			for i, v := range samples {
				want := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
				if !assert.InDelta(t, want, v, tol, "sample %d", i) {
					return
				}
			}
		}
	}

	tests := []struct {
		name         string
		file         string
		format       Format
		target       int
		wantRate     int
		wantChannels int
		wantLen      int
		check        func(*testing.T, []float64)
	}{
		{
			// left at 0.5, right at 0.25 full scale
			name: "flac 16-bit stereo", file: "tone_16000_stereo_16bit.flac", format: FormatFLAC,
			target: 16000, wantRate: 16000, wantChannels: 2, wantLen: 4000,
			check: tone(0.375, 440, 16000, 1e-4),
		},
		{
			name: "flac 24-bit mono", file: "tone_16000_mono_24bit.flac", format: FormatFLAC,
			target: 16000, wantRate: 16000, wantChannels: 1, wantLen: 4000,
			check: tone(0.5, 440, 16000, 1e-5),
		},
		{
			name: "flac 8-bit mono", file: "tone_8000_mono_8bit.flac", format: FormatFLAC,
			target: 8000, wantRate: 8000, wantChannels: 1, wantLen: 2000,
			check: tone(0.5, 200, 8000, 0.01),
		},
		{
			name: "flac 8-bit resampled", file: "tone_8000_mono_8bit.flac", format: FormatFLAC,
			target: 16000, wantRate: 8000, wantChannels: 1, wantLen: 4000,
		},
		{
			name: "ogg vorbis mono", file: "tone_44100_mono.ogg", format: FormatOGG,
			target: 44100, wantRate: 44100, wantChannels: 1, wantLen: 44100,
			check: func(t *testing.T, samples []float64) {
				t.Helper()
				for i, want := range []float64{0.73016357421875, 0.679779052734375, 0.611968994140625, 0.528564453125} {
					assert.InDelta(t, want, samples[1000+i], 1e-4)
				}
			},
		},
		{
			// 64 MPEG-2 layer III frames of 576 samples; the decoder emits stereo
			name: "mp3 mpeg-2 mono", file: "speech_22050_mono.mp3", format: FormatMP3,
			target: 22050, wantRate: 22050, wantChannels: 2, wantLen: -1,
			check: func(t *testing.T, samples []float64) {
				t.Helper()
				assert.InDelta(t, 64*576, len(samples), 2*576)
				var peak float64
				for _, v := range samples {
					peak = math.Max(peak, math.Abs(v))
				}
				assert.Greater(t, peak, 1e-3)
				assert.LessOrEqual(t, peak, 1.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := os.ReadFile(filepath.Join("testdata", tt.file))
			require.NoError(t, err)

			a, err := Decode(data, tt.format, tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.target, a.SampleRate)
			assert.Equal(t, tt.wantRate, a.SourceRate)
			assert.Equal(t, tt.wantChannels, a.SourceChannels)
			if tt.wantLen >= 0 {
				require.Len(t, a.Samples, tt.wantLen)
			}
			if tt.check != nil {
				tt.check(t, a.Samples)
			}
		})
	}
}

func TestDecodeFileFixture(t *testing.T) {
	t.Parallel()

	a, err := DecodeFile(context.Background(), filepath.Join("testdata", "tone_16000_mono_24bit.flac"), 16000, "")
	require.NoError(t, err)
	assert.Equal(t, FormatFLAC, a.Format)
	assert.Len(t, a.Samples, 4000)
}

func TestDecodeFloatWAV(t *testing.T) {
	t.Parallel()

	samples := []float32{0, 0.25, -0.5, 0.75, -1}

	tests := []struct {
		name      string
		tag       uint16
		subFormat uint16
		wantErr   bool
	}{
		{"ieee float tag", wavFormatIEEEFloat, 0, false},
		{"extensible float", wavFormatExtensible, wavFormatIEEEFloat, false},
		{"extensible a-law", wavFormatExtensible, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := Decode(floatWAVBytes(16000, tt.tag, tt.subFormat, samples), FormatWAV, 16000)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryAudioDecode))
				return
			}
			require.NoError(t, err)
			require.Len(t, a.Samples, len(samples))
			for i, v := range samples {
				assert.InDelta(t, float64(v), a.Samples[i], 1e-9)
			}
		})
	}
}

func TestWAVExtensibleSubFormat(t *testing.T) {
	t.Parallel()

	sub, ok := wavExtensibleSubFormat(floatWAVBytes(16000, wavFormatExtensible, wavFormatIEEEFloat, []float32{0}))
	require.True(t, ok)
	assert.Equal(t, uint16(wavFormatIEEEFloat), sub)

	_, ok = wavExtensibleSubFormat(floatWAVBytes(16000, wavFormatIEEEFloat, 0, []float32{0}))
	assert.False(t, ok, "a 16-byte fmt chunk has no sub-format")

	_, ok = wavExtensibleSubFormat([]byte("RIFF"))
	assert.False(t, ok)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	garbage := []byte("this is definitely not an audio stream, just some text bytes")

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"corrupt wav", garbage, FormatWAV},
		{"corrupt mp3", garbage, FormatMP3},
		{"corrupt ogg", garbage, FormatOGG},
		{"corrupt flac", garbage, FormatFLAC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := Decode(tt.data, tt.format, 16000)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, errors.IsCategory(err, errors.CategoryAudioDecode), "got %v", err)
		})
	}
}

func TestDecodeEmptyAudio(t *testing.T) {
	t.Parallel()

	_, err := Decode(nil, FormatWAV, 16000)
	require.ErrorIs(t, err, ErrEmptyAudio)

	_, err = Decode(testWAVBytes(t, 16000, 1, nil), FormatWAV, 16000)
	require.Error(t, err)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("abc"), Format(".txt"), 16000)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestDecodeFileBuiltin(t *testing.T) {
	t.Parallel()

	data := sine(4000, 16000, 220, 0.4)
	path := writeTestWAV(t, "clip.wav", 16000, 1, data)

	a, err := DecodeFile(context.Background(), path, 16000, "")
	require.NoError(t, err)
	assert.Len(t, a.Samples, len(data))
	assert.Equal(t, FormatWAV, a.Format)
}

func TestDecodeFileMissing(t *testing.T) {
	t.Parallel()

	_, err := DecodeFile(context.Background(), "/nonexistent/clip.wav", 16000, "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestDecodeFileFFmpeg(t *testing.T) {
	t.Parallel()

	ffmpegPath := conf.ResolveFfmpegPath("")
	if ffmpegPath == "" {
		t.Skip("ffmpeg not available")
	}

	data := sine(8000, 16000, 220, 0.4)
	path := writeTestWAV(t, "clip.wav", 16000, 1, data)

	a, err := DecodeFile(context.Background(), path, 16000, ffmpegPath)
	require.NoError(t, err)
	assert.InDelta(t, len(data), len(a.Samples), 16)
	assert.InDelta(t, float64(data[100])/32768.0, a.Samples[100], 1e-3)
}

func TestDecodeFileFFmpegCancelled(t *testing.T) {
	t.Parallel()

	ffmpegPath := conf.ResolveFfmpegPath("")
	if ffmpegPath == "" {
		t.Skip("ffmpeg not available")
	}

	path := writeTestWAV(t, "clip.wav", 16000, 1, sine(1600, 16000, 220, 0.4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeFile(ctx, path, 16000, ffmpegPath)
	require.Error(t, err)
}

func TestGetAudioDivisor(t *testing.T) {
	t.Parallel()

	d, err := getAudioDivisor(24)
	require.NoError(t, err)
	assert.InDelta(t, 8388608.0, d, 0)

	_, err = getAudioDivisor(12)
	require.Error(t, err)
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{0.5, -0.25}, downmix([]float64{1, 0, -0.5, 0}, 2))
	mono := []float64{0.1, 0.2}
	assert.Equal(t, mono, downmix(mono, 1))
}
