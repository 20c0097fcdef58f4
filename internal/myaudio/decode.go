package myaudio

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/logger"
)

type readerFunc func([]byte) (*pcm, error)

var readers = map[Format]readerFunc{
	FormatWAV:  readWAV,
	FormatFLAC: readFLAC,
	FormatMP3:  readMP3,
	FormatOGG:  readOGG,
}

// Decode decodes an in-memory clip into a mono waveform at sampleRate.
// Channels are averaged before resampling.
func Decode(data []byte, format Format, sampleRate int) (*Audio, error) {
	read, ok := readers[format]
	if !ok {
		return nil, errors.Newf("unsupported audio format: %q", string(format)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	stream, err := read(data)
	if err != nil {
		return nil, decodeError(format, err)
	}

	mono := downmix(stream.samples, stream.channels)
	if len(mono) == 0 {
		return nil, ErrEmptyAudio
	}

	resampled, err := resampleMono(mono, stream.sampleRate, sampleRate)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudio).
			Context("source_rate", stream.sampleRate).
			Context("target_rate", sampleRate).
			Build()
	}

	return &Audio{
		Samples:        resampled,
		SampleRate:     sampleRate,
		SourceRate:     stream.sampleRate,
		SourceChannels: stream.channels,
		Format:         format,
	}, nil
}

// DecodeFile decodes the clip at path. When ffmpegPath is set the file is
// decoded by ffmpeg; if ffmpeg fails for reasons other than cancellation the
// in-process decoders are tried next.
func DecodeFile(ctx context.Context, path string, sampleRate int, ffmpegPath string) (*Audio, error) {
	format := FormatFromFilename(path)

	if ffmpegPath != "" {
		samples, err := decodeWithFFmpeg(ctx, ffmpegPath, path, sampleRate)
		switch {
		case err == nil && len(samples) > 0:
			return &Audio{
				Samples:        samples,
				SampleRate:     sampleRate,
				SourceChannels: 1,
				SourceRate:     sampleRate,
				Format:         format,
			}, nil
		case ctx.Err() != nil:
			return nil, err
		default:
			logger.Global().Module(componentName).Debug("ffmpeg decode failed, using built-in decoder",
				logger.String("format", format.String()),
				logger.Error(err))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read audio file: %w", err)).
			Component(componentName).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return Decode(data, format, sampleRate)
}
