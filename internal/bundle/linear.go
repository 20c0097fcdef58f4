package bundle

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearClassifier scores rows with x·Wᵀ + b. A single weight row is a
// binary decision function where a positive score selects the second class.
type LinearClassifier struct {
	weights   *mat.Dense // k × d
	intercept []float64
	scaler    *standardizer
	classes   []int
}

func newLinearClassifier(coef [][]float64, intercept []float64, scaler *scalerSpec, classes []int) (*LinearClassifier, error) {
	if len(coef) == 0 || len(coef[0]) == 0 {
		return nil, fmt.Errorf("linear classifier has no coefficients")
	}

	k, d := len(coef), len(coef[0])
	weights := mat.NewDense(k, d, nil)
	for i, row := range coef {
		if len(row) != d {
			return nil, fmt.Errorf("coefficient row %d has %d values, expected %d", i, len(row), d)
		}
		weights.SetRow(i, row)
	}

	switch len(intercept) {
	case 0:
		intercept = make([]float64, k)
	case k:
		intercept = append([]float64(nil), intercept...)
	default:
		return nil, fmt.Errorf("intercept has %d values, expected %d", len(intercept), k)
	}

	std, err := newStandardizer(scaler, d)
	if err != nil {
		return nil, err
	}

	outputs := k
	if k == 1 {
		outputs = 2
	}
	ids, err := classIDs(classes, outputs)
	if err != nil {
		return nil, err
	}

	return &LinearClassifier{weights: weights, intercept: intercept, scaler: std, classes: ids}, nil
}

// Predict implements Classifier.
func (c *LinearClassifier) Predict(x mat.Matrix) ([]int, error) {
	k, d := c.weights.Dims()
	if err := checkFeatures(x, d); err != nil {
		return nil, err
	}

	input := c.scaler.apply(x)
	rows, _ := input.Dims()

	var scores mat.Dense
	scores.Mul(input, c.weights.T())

	out := make([]int, rows)
	row := make([]float64, k)
	for i := range rows {
		mat.Row(row, i, &scores)
		floats.Add(row, c.intercept)
		if k == 1 {
			if row[0] > 0 {
				out[i] = c.classes[1]
			} else {
				out[i] = c.classes[0]
			}
			continue
		}
		out[i] = c.classes[floats.MaxIdx(row)]
	}
	return out, nil
}
