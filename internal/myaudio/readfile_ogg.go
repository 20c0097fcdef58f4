package myaudio

import (
	"bytes"
	"fmt"

	"github.com/jfreymuth/oggvorbis"
)

func readOGG(data []byte) (*pcm, error) {
	raw, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("unsupported number of channels: %d", format.Channels)
	}

	samples := make([]float64, len(raw))
	for i, v := range raw {
		samples[i] = float64(v)
	}

	return &pcm{
		samples:    samples,
		sampleRate: format.SampleRate,
		channels:   format.Channels,
	}, nil
}
