package myaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/tphakala/voiceid/internal/errors"
)

// validateFFmpegPath checks if FFmpeg is available
func validateFFmpegPath(ffmpegPath string) error {
	if ffmpegPath == "" {
		return fmt.Errorf("FFmpeg is not available")
	}
	return nil
}

// decodeWithFFmpeg decodes the file at path into mono float32 PCM at
// sampleRate. The process is killed when ctx is cancelled.
func decodeWithFFmpeg(ctx context.Context, ffmpegPath, path string, sampleRate int) ([]float64, error) {
	if err := validateFFmpegPath(ffmpegPath); err != nil {
		return nil, err
	}

	// -nostdin: never wait for terminal input
	// -ac 1 -ar N: downmix and resample inside ffmpeg
	// -f f32le pipe:1: raw little-endian float32 on stdout
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1")

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg canceled: %w", ctx.Err())
		}
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = err.Error()
		}
		return nil, errors.Newf("ffmpeg failed: %s", errMsg).
			Component(componentName).
			Category(errors.CategoryCommand).
			Context("operation", "ffmpeg_decode").
			Build()
	}

	raw := out.Bytes()
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return samples, nil
}
