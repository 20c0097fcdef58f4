package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearClassifierBinary(t *testing.T) {
	t.Parallel()

	c, err := newLinearClassifier([][]float64{{2, -1}}, []float64{-1}, nil, []int{7, 9})
	require.NoError(t, err)

	ids, err := c.Predict(mat.NewDense(3, 2, []float64{
		1, 0, // 2 - 1 = 1  -> positive
		0, 0, // -1         -> negative
		1, 1, // 2 - 1 - 1 = 0 -> not positive
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{9, 7, 7}, ids)
}

func TestLinearClassifierMulticlassWithScaler(t *testing.T) {
	t.Parallel()

	c, err := newLinearClassifier(
		[][]float64{{1, 0}, {0, 1}, {-1, -1}},
		nil,
		&scalerSpec{Mean: []float64{10, 10}, Scale: []float64{2, 0}},
		nil,
	)
	require.NoError(t, err)

	// (14-10)/2 = 2 and (11-10)/1 = 1 after standardization
	ids, err := c.Predict(mat.NewDense(2, 2, []float64{14, 11, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, ids)
}

func TestLinearClassifierValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		coef      [][]float64
		intercept []float64
		scaler    *scalerSpec
		classes   []int
		want      string
	}{
		{"no coefficients", nil, nil, nil, nil, "no coefficients"},
		{"ragged rows", [][]float64{{1, 2}, {1}}, nil, nil, nil, "coefficient row 1"},
		{"intercept size", [][]float64{{1}, {2}}, []float64{1}, nil, nil, "intercept has 1 values"},
		{"scaler size", [][]float64{{1, 2}}, nil, &scalerSpec{Mean: []float64{0}, Scale: []float64{1}}, nil, "scaler has 1 means"},
		{"classes size", [][]float64{{1}, {2}, {3}}, nil, nil, []int{0, 1}, "got 2 class ids for 3 outputs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newLinearClassifier(tt.coef, tt.intercept, tt.scaler, tt.classes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClassifierRejectsWrongWidth(t *testing.T) {
	t.Parallel()

	linear, err := newLinearClassifier([][]float64{{1, 2, 3}}, nil, nil, nil)
	require.NoError(t, err)
	_, err = linear.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	require.EqualError(t, err, "X has 2 features, but model is expecting 3 features as input")

	centroid, err := newCentroidClassifier([][]float64{{0}, {1}}, nil, nil)
	require.NoError(t, err)
	_, err = centroid.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	require.Error(t, err)
}

func TestCentroidClassifier(t *testing.T) {
	t.Parallel()

	c, err := newCentroidClassifier([][]float64{{0, 0}, {4, 4}}, nil, []int{3, 5})
	require.NoError(t, err)

	ids, err := c.Predict(mat.NewDense(3, 2, []float64{
		1, 1,
		3, 3,
		2, 2.1,
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 5}, ids)
}

func TestLabelEncoder(t *testing.T) {
	t.Parallel()

	enc, err := NewLabelEncoder([]string{"female", "male"})
	require.NoError(t, err)

	labels, err := enc.InverseTransform([]int{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"male", "female", "male"}, labels)
	assert.Equal(t, []string{"female", "male"}, enc.Classes())

	_, err = enc.InverseTransform([]int{0, 2, -1})
	require.EqualError(t, err, "y contains previously unseen labels: [2 -1]")

	_, err = NewLabelEncoder(nil)
	require.Error(t, err)

	_, err = buildEncoder(&encoderSpec{Kind: "onehot", Classes: []string{"a"}})
	require.Error(t, err)
}

func TestResolveKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindLinear, (&classifierSpec{Coef: [][]float64{{1}}}).resolveKind())
	assert.Equal(t, KindCentroid, (&classifierSpec{Centroids: [][]float64{{1}}}).resolveKind())
	assert.Equal(t, KindTFLite, (&classifierSpec{Path: "m.tflite"}).resolveKind())
	assert.Equal(t, "svm", (&classifierSpec{Kind: "svm", Coef: [][]float64{{1}}}).resolveKind())
	assert.Empty(t, (&classifierSpec{}).resolveKind())

	_, _, err := buildClassifier(&classifierSpec{}, ".")
	require.Error(t, err)
}
