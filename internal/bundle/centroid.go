package bundle

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CentroidClassifier assigns each row to the nearest class centroid by
// Euclidean distance.
type CentroidClassifier struct {
	centroids [][]float64
	scaler    *standardizer
	classes   []int
}

func newCentroidClassifier(centroids [][]float64, scaler *scalerSpec, classes []int) (*CentroidClassifier, error) {
	if len(centroids) == 0 || len(centroids[0]) == 0 {
		return nil, fmt.Errorf("centroid classifier has no centroids")
	}

	d := len(centroids[0])
	copied := make([][]float64, len(centroids))
	for i, c := range centroids {
		if len(c) != d {
			return nil, fmt.Errorf("centroid %d has %d values, expected %d", i, len(c), d)
		}
		copied[i] = append([]float64(nil), c...)
	}

	std, err := newStandardizer(scaler, d)
	if err != nil {
		return nil, err
	}

	ids, err := classIDs(classes, len(centroids))
	if err != nil {
		return nil, err
	}

	return &CentroidClassifier{centroids: copied, scaler: std, classes: ids}, nil
}

// Predict implements Classifier.
func (c *CentroidClassifier) Predict(x mat.Matrix) ([]int, error) {
	if err := checkFeatures(x, len(c.centroids[0])); err != nil {
		return nil, err
	}

	input := c.scaler.apply(x)
	rows, cols := input.Dims()

	out := make([]int, rows)
	row := make([]float64, cols)
	for i := range rows {
		mat.Row(row, i, input)
		best, bestDist := 0, floats.Distance(row, c.centroids[0], 2)
		for j := 1; j < len(c.centroids); j++ {
			if dist := floats.Distance(row, c.centroids[j], 2); dist < bestDist {
				best, bestDist = j, dist
			}
		}
		out[i] = c.classes[best]
	}
	return out, nil
}
