package bundle

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Classifier predicts one class id per input row.
type Classifier interface {
	Predict(x mat.Matrix) ([]int, error)
}

// LabelDecoder maps class ids back to their labels.
type LabelDecoder interface {
	InverseTransform(ids []int) ([]string, error)
}

// Artifact kinds accepted in a bundle document.
const (
	KindLinear   = "linear"
	KindCentroid = "centroid"
	KindTFLite   = "tflite"
	KindEncoder  = "label_encoder"
)

// scalerSpec standardizes features as (x - mean) / scale before scoring.
type scalerSpec struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// classifierSpec is the serialized form of a classifier slot.
type classifierSpec struct {
	Kind      string      `yaml:"kind"`
	Coef      [][]float64 `yaml:"coef"`
	Intercept []float64   `yaml:"intercept"`
	Centroids [][]float64 `yaml:"centroids"`
	Scaler    *scalerSpec `yaml:"scaler"`
	Classes   []int       `yaml:"classes"`
	Path      string      `yaml:"path"`
	Threads   int         `yaml:"threads"`
}

// encoderSpec is the serialized form of a label encoder slot.
type encoderSpec struct {
	Kind    string   `yaml:"kind"`
	Classes []string `yaml:"classes"`
}

// resolveKind infers the kind from the populated fields when it is not
// given explicitly.
func (s *classifierSpec) resolveKind() string {
	switch {
	case s.Kind != "":
		return s.Kind
	case len(s.Coef) > 0:
		return KindLinear
	case len(s.Centroids) > 0:
		return KindCentroid
	case s.Path != "":
		return KindTFLite
	default:
		return ""
	}
}

// buildClassifier constructs the classifier described by spec. Relative
// tflite paths are resolved against baseDir.
func buildClassifier(spec *classifierSpec, baseDir string) (Classifier, string, error) {
	kind := spec.resolveKind()

	var (
		c   Classifier
		err error
	)
	switch kind {
	case KindLinear:
		c, err = newLinearClassifier(spec.Coef, spec.Intercept, spec.Scaler, spec.Classes)
	case KindCentroid:
		c, err = newCentroidClassifier(spec.Centroids, spec.Scaler, spec.Classes)
	case KindTFLite:
		c, err = newTFLiteClassifier(resolvePath(baseDir, spec.Path), spec.Threads, spec.Classes)
	case "":
		err = fmt.Errorf("classifier kind not specified and cannot be inferred")
	default:
		err = fmt.Errorf("unknown classifier kind %q", kind)
	}
	if err != nil {
		return nil, kind, err
	}
	return c, kind, nil
}

// standardizer applies a fitted scaler to input rows.
type standardizer struct {
	mean  []float64
	scale []float64
}

func newStandardizer(spec *scalerSpec, dims int) (*standardizer, error) {
	if spec == nil {
		return nil, nil
	}
	if len(spec.Mean) != dims || len(spec.Scale) != dims {
		return nil, fmt.Errorf("scaler has %d means and %d scales, expected %d",
			len(spec.Mean), len(spec.Scale), dims)
	}
	s := &standardizer{
		mean:  append([]float64(nil), spec.Mean...),
		scale: make([]float64, dims),
	}
	for i, v := range spec.Scale {
		// zero variance features are left unscaled
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

// apply returns a standardized copy of x.
func (s *standardizer) apply(x mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(x)
	if s == nil {
		return out
	}
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, out)
	return out
}

// checkFeatures validates the input width against the fitted width.
func checkFeatures(x mat.Matrix, dims int) error {
	rows, cols := x.Dims()
	if rows == 0 {
		return fmt.Errorf("input contains no samples")
	}
	if cols != dims {
		return fmt.Errorf("X has %d features, but model is expecting %d features as input", cols, dims)
	}
	return nil
}

// classIDs returns classes, or 0..n-1 when classes is empty.
func classIDs(classes []int, n int) ([]int, error) {
	if len(classes) == 0 {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i
		}
		return ids, nil
	}
	if len(classes) != n {
		return nil, fmt.Errorf("got %d class ids for %d outputs", len(classes), n)
	}
	return append([]int(nil), classes...), nil
}
