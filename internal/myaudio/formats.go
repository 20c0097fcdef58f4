// Package myaudio decodes uploaded audio clips into mono float64 waveforms.
//
// Supported containers are WAV, FLAC, MP3 and Ogg Vorbis. Decoding is done
// in-process from bytes, or from a file path through ffmpeg when it is
// available.
package myaudio

import (
	"path/filepath"
	"strings"
)

// Format identifies an audio container by its file extension, lower case and
// including the leading dot.
type Format string

const (
	FormatWAV  Format = ".wav"
	FormatMP3  Format = ".mp3"
	FormatFLAC Format = ".flac"
	FormatOGG  Format = ".ogg"
)

// supportedFormats is the upload allow-list.
var supportedFormats = map[Format]struct{}{
	FormatWAV:  {},
	FormatMP3:  {},
	FormatFLAC: {},
	FormatOGG:  {},
}

// SupportedFormats returns the allow-listed formats in a stable order.
func SupportedFormats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatFLAC, FormatOGG}
}

// FormatFromFilename returns the lower-cased extension of name.
func FormatFromFilename(name string) Format {
	return Format(strings.ToLower(filepath.Ext(name)))
}

// IsSupportedExtension reports whether the extension of name is on the
// allow-list. The comparison is case-insensitive.
func IsSupportedExtension(name string) bool {
	_, ok := supportedFormats[FormatFromFilename(name)]
	return ok
}

// String returns the format name without the leading dot.
func (f Format) String() string {
	return strings.TrimPrefix(string(f), ".")
}
