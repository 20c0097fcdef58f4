package myaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

// maxPreallocSamples bounds the buffer sized from the stream header.
const maxPreallocSamples = 1 << 24

func readFLAC(data []byte) (*pcm, error) {
	decoder, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bitDepth := decoder.BitsPerSample
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels <= 0 {
		return nil, fmt.Errorf("unsupported number of channels: %d", decoder.NChannels)
	}

	bytesPerSample := bitDepth / 8
	capacity := int(decoder.TotalSamples) * decoder.NChannels
	if capacity < 0 || capacity > maxPreallocSamples {
		capacity = maxPreallocSamples
	}
	samples := make([]float64, 0, capacity)

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch bitDepth {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float64(sample)/divisor)
		}
	}

	return &pcm{
		samples:    samples,
		sampleRate: decoder.SampleRate,
		channels:   decoder.NChannels,
	}, nil
}
