//go:build !tflite

package bundle

import "fmt"

// ErrTFLiteUnavailable is returned for tflite artifacts in binaries built
// without the tflite tag.
var ErrTFLiteUnavailable = fmt.Errorf("tflite classifiers require a build with -tags tflite")

func newTFLiteClassifier(path string, _ int, _ []int) (Classifier, error) {
	return nil, fmt.Errorf("load %s: %w", path, ErrTFLiteUnavailable)
}
