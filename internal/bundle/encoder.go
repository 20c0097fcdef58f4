package bundle

import (
	"fmt"
	"slices"
)

// LabelEncoder maps class ids to the labels it was fitted on.
type LabelEncoder struct {
	classes []string
}

// NewLabelEncoder returns an encoder whose id i decodes to classes[i].
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder has no classes")
	}
	return &LabelEncoder{classes: slices.Clone(classes)}, nil
}

// InverseTransform implements LabelDecoder.
func (e *LabelEncoder) InverseTransform(ids []int) ([]string, error) {
	labels := make([]string, len(ids))
	var unseen []int
	for i, id := range ids {
		if id < 0 || id >= len(e.classes) {
			unseen = append(unseen, id)
			continue
		}
		labels[i] = e.classes[id]
	}
	if len(unseen) > 0 {
		return nil, fmt.Errorf("y contains previously unseen labels: %v", unseen)
	}
	return labels, nil
}

// Classes returns the fitted labels in id order.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

func buildEncoder(spec *encoderSpec) (*LabelEncoder, error) {
	if spec.Kind != "" && spec.Kind != KindEncoder {
		return nil, fmt.Errorf("unknown encoder kind %q", spec.Kind)
	}
	return NewLabelEncoder(spec.Classes)
}
