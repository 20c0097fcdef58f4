package myaudio

import (
	"fmt"

	"github.com/tphakala/voiceid/internal/errors"
)

const componentName = "myaudio"

// ErrEmptyAudio is returned when a stream decodes to zero samples.
var ErrEmptyAudio = errors.NewStd("audio contains no samples")

func errUnsupportedBitDepth(bitDepth int) error {
	return errors.Newf("unsupported bit depth: %d", bitDepth).
		Component(componentName).
		Category(errors.CategoryAudioDecode).
		Context("bit_depth", bitDepth).
		Build()
}

// decodeError wraps a codec failure with the format that produced it.
func decodeError(format Format, err error) error {
	return errors.New(fmt.Errorf("decode %s: %w", format.String(), err)).
		Component(componentName).
		Category(errors.CategoryAudioDecode).
		Context("format", format.String()).
		Build()
}
