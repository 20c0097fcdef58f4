package myaudio

import "time"

// Audio is a decoded mono waveform.
type Audio struct {
	Samples    []float64
	SampleRate int
	// SourceRate and SourceChannels describe the stream before downmixing
	// and resampling.
	SourceRate     int
	SourceChannels int
	Format         Format
}

// Duration returns the playback length of the waveform.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / float64(a.SampleRate) * float64(time.Second))
}

// pcm is an interleaved stream of normalized samples in [-1, 1].
type pcm struct {
	samples    []float64
	sampleRate int
	channels   int
}

// downmix averages interleaved channels into a single channel.
func downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range frames {
		var sum float64
		base := i * channels
		for c := range channels {
			sum += samples[base+c]
		}
		mono[i] = sum * scale
	}
	return mono
}

// getAudioDivisor returns the full-scale value for signed PCM at bitDepth.
func getAudioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errUnsupportedBitDepth(bitDepth)
	}
}
