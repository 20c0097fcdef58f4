package myaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/tcolgate/mp3"
)

// mp3Info is the result of walking the MPEG frame headers.
type mp3Info struct {
	frames     int
	sampleRate int
	duration   time.Duration
}

// probeMP3 walks the frame headers without decoding audio. A stream with
// no valid frame is rejected before it reaches the PCM decoder.
func probeMP3(data []byte) (mp3Info, error) {
	var (
		info    mp3Info
		frame   mp3.Frame
		skipped int
	)

	decoder := mp3.NewDecoder(bytes.NewReader(data))
	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF || err == mp3.ErrPrematureEOF || err == mp3.ErrNoSyncBits {
				break
			}
			return info, err
		}
		if info.frames == 0 {
			info.sampleRate = int(frame.Header().SampleRate())
		}
		info.frames++
		info.duration += frame.Duration()
	}

	if info.frames == 0 {
		return info, fmt.Errorf("no MPEG audio frames found")
	}
	return info, nil
}

// readMP3 decodes an MP3 stream. The decoder always produces 16-bit
// little-endian stereo.
func readMP3(data []byte) (*pcm, error) {
	if _, err := probeMP3(data); err != nil {
		return nil, err
	}

	decoder, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("read MP3 PCM: %w", err)
	}

	const bytesPerSample = 2
	samples := make([]float64, len(raw)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:]))
		samples[i] = float64(v) / 32768.0
	}

	return &pcm{
		samples:    samples,
		sampleRate: decoder.SampleRate(),
		channels:   2,
	}, nil
}
