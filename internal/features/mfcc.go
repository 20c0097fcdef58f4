package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/voiceid/internal/observability/metrics"
)

// Spectral analysis parameters.
const (
	NFFT      = 2048
	HopLength = 512
	NMels     = 128

	// power_to_db parameters
	amin  = 1e-10
	topDB = 80.0
)

// transform holds the precomputed bases for one sample rate and
// coefficient count. It is immutable and safe for concurrent use.
type transform struct {
	sampleRate int
	nMFCC      int
	melBasis   *mat.Dense // NMels × (NFFT/2+1)
	dctBasis   *mat.Dense // nMFCC × NMels
}

func newTransform(sampleRate, nMFCC int) *transform {
	return &transform{
		sampleRate: sampleRate,
		nMFCC:      nMFCC,
		melBasis:   melFilterBank(sampleRate, NFFT, NMels),
		dctBasis:   dctMatrix(nMFCC, NMels),
	}
}

// mfcc returns the nMFCC×frames cepstral coefficient matrix of y.
func (tr *transform) mfcc(y []float64) *mat.Dense {
	melSpec := melSpectrogram(y, NFFT, HopLength, tr.melBasis)
	_, nFrames := melSpec.Dims()

	powerToDB(melSpec)

	coeffs := mat.NewDense(tr.nMFCC, nFrames, nil)
	coeffs.Mul(tr.dctBasis, melSpec)
	return coeffs
}

// powerToDB converts a power spectrogram to decibels in place with a
// reference power of 1, floored at topDB below the peak.
func powerToDB(m *mat.Dense) {
	peak := math.Inf(-1)
	m.Apply(func(_, _ int, v float64) float64 {
		db := 10 * math.Log10(math.Max(amin, v))
		if db > peak {
			peak = db
		}
		return db
	}, m)

	floor := peak - topDB
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, floor)
	}, m)
}

// summarize returns the per-coefficient mean across frames followed by the
// per-coefficient population standard deviation.
func summarize(coeffs *mat.Dense) []float64 {
	rows, cols := coeffs.Dims()
	out := make([]float64, 2*rows)
	row := make([]float64, cols)
	for i := range rows {
		mat.Row(row, i, coeffs)
		mean, std := stat.PopMeanStdDev(row, nil)
		out[i] = mean
		out[rows+i] = std
	}
	return out
}

// normalizeLength forces v to exactly n elements by zero-padding or
// truncation. The returned direction is empty when v already fits.
func normalizeLength(v []float64, n int) ([]float64, string) {
	switch {
	case len(v) < n:
		padded := make([]float64, n)
		copy(padded, v)
		return padded, metrics.NormalizePad
	case len(v) > n:
		return v[:n], metrics.NormalizeTruncate
	default:
		return v, ""
	}
}
