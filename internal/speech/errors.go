package speech

import (
	"fmt"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/errors"
)

// Stage identifies where a prediction failed.
type Stage string

const (
	StageValidation Stage = "validation"
	StageExtraction Stage = "extraction"
	StageInference  Stage = "inference"
	StageBusy       Stage = "busy"
)

// User-facing validation messages.
const (
	MsgNoAudio           = "No audio file provided"
	MsgUnsupportedFormat = "Unsupported audio format. Please use WAV, MP3, OGG, or FLAC."
)

// PredictError is returned by Pipeline.Predict. Its message is safe to
// return to clients.
type PredictError struct {
	Stage Stage
	Err   error
}

func (e *PredictError) Error() string {
	switch e.Stage {
	case StageExtraction:
		return "Feature extraction failed: " + e.Err.Error()
	case StageInference:
		return "Prediction failed: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *PredictError) Unwrap() error {
	return e.Err
}

func validationError(msg string) *PredictError {
	return &PredictError{Stage: StageValidation, Err: errors.ValidationError(msg)}
}

// MissingSlotsError reports bundle slots that were not loaded.
type MissingSlotsError struct {
	Slots      []bundle.Slot
	BundlePath string
}

func (e *MissingSlotsError) Error() string {
	msg := fmt.Sprintf("models not loaded. The following components are missing: %s", bundle.SlotNames(e.Slots))
	if e.BundlePath != "" {
		msg += fmt.Sprintf(". Please ensure the models and encoders are properly saved to %s", e.BundlePath)
	}
	return msg
}

// ErrModelsNotLoaded matches any MissingSlotsError with errors.Is.
var ErrModelsNotLoaded = errors.NewStd("models not loaded")

func (e *MissingSlotsError) Is(target error) bool {
	return target == ErrModelsNotLoaded
}
