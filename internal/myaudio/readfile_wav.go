package myaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

func readWAV(data []byte) (*pcm, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}

	if decoder.NumChans == 0 {
		return nil, fmt.Errorf("unsupported number of channels: %d", decoder.NumChans)
	}

	bitDepth := int(decoder.BitDepth)
	format := decoder.WavAudioFormat
	if format == wavFormatExtensible {
		sub, ok := wavExtensibleSubFormat(data)
		if !ok {
			return nil, fmt.Errorf("WAVE_FORMAT_EXTENSIBLE header without a sub-format")
		}
		format = sub
	}
	if format != wavFormatPCM && format != wavFormatIEEEFloat {
		return nil, fmt.Errorf("unsupported WAV encoding: format tag 0x%04X", format)
	}
	isFloat := format == wavFormatIEEEFloat
	if isFloat && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported float bit depth: %d", bitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}

	samples := make([]float64, len(buf.Data))
	switch {
	case isFloat:
		for i, v := range buf.Data {
			samples[i] = float64(math.Float32frombits(uint32(int32(v))))
		}
	case bitDepth == 8:
		// 8-bit WAV is unsigned with a midpoint of 128
		for i, v := range buf.Data {
			samples[i] = float64(v-128) / 128.0
		}
	default:
		divisor, err := getAudioDivisor(bitDepth)
		if err != nil {
			return nil, err
		}
		for i, v := range buf.Data {
			samples[i] = float64(v) / divisor
		}
	}

	return &pcm{
		samples:    samples,
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
	}, nil
}

// wavExtensibleSubFormat returns the format code stored in the first two
// bytes of the SubFormat GUID of a WAVE_FORMAT_EXTENSIBLE fmt chunk.
func wavExtensibleSubFormat(data []byte) (uint16, bool) {
	const (
		riffHeaderSize  = 12
		chunkHeaderSize = 8
		subFormatOffset = 24
	)
	for off := riffHeaderSize; off+chunkHeaderSize <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		body := off + chunkHeaderSize
		if id == "fmt " {
			if size < subFormatOffset+2 || body+subFormatOffset+2 > len(data) {
				return 0, false
			}
			return binary.LittleEndian.Uint16(data[body+subFormatOffset:]), true
		}
		if size < 0 {
			return 0, false
		}
		// chunks are word aligned
		off = body + size + size%2
	}
	return 0, false
}
