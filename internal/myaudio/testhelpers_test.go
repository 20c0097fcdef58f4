package myaudio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeTestWAV encodes interleaved 16-bit samples into a WAV file under the
// test's temp dir and returns its path.
func writeTestWAV(t *testing.T, name string, sampleRate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// testWAVBytes returns an encoded WAV clip.
func testWAVBytes(t *testing.T, sampleRate, channels int, data []int) []byte {
	t.Helper()

	raw, err := os.ReadFile(writeTestWAV(t, "clip.wav", sampleRate, channels, data))
	require.NoError(t, err)
	return raw
}

// sine returns n 16-bit samples of a tone at freq Hz.
func sine(n, sampleRate int, freq, amplitude float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

// floatWAVBytes builds a mono 32-bit float WAV. With tag 0xFFFE the fmt
// chunk carries the WAVE_FORMAT_EXTENSIBLE extension and subFormat.
func floatWAVBytes(sampleRate int, tag, subFormat uint16, samples []float32) []byte {
	const bytesPerSample = 4

	var fmtChunk bytes.Buffer
	le := func(v any) { _ = binary.Write(&fmtChunk, binary.LittleEndian, v) }
	le(tag)
	le(uint16(1))
	le(uint32(sampleRate))
	le(uint32(sampleRate * bytesPerSample))
	le(uint16(bytesPerSample))
	le(uint16(32))
	if tag == wavFormatExtensible {
		le(uint16(22)) // cbSize
		le(uint16(32)) // valid bits
		le(uint32(4))  // front center
		le(subFormat)
		fmtChunk.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	}

	var body bytes.Buffer
	w := func(v any) { _ = binary.Write(&body, binary.LittleEndian, v) }
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	w(uint32(fmtChunk.Len()))
	body.Write(fmtChunk.Bytes())
	body.WriteString("data")
	w(uint32(len(samples) * bytesPerSample))
	w(samples)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}
