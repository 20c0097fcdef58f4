package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dctMatrix returns the first nOut rows of the orthonormal DCT-II basis for
// length-n input.
func dctMatrix(nOut, n int) *mat.Dense {
	basis := mat.NewDense(nOut, n, nil)
	scale0 := math.Sqrt(1 / float64(n))
	scaleK := math.Sqrt(2 / float64(n))
	for k := range nOut {
		scale := scaleK
		if k == 0 {
			scale = scale0
		}
		for i := range n {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n))))
		}
	}
	return basis
}
