package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale constants: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFilterBank returns an nMels×(nFFT/2+1) matrix of triangular filters
// spanning 0 Hz to the Nyquist frequency. Each filter is scaled to unit area
// (Slaney normalization).
func melFilterBank(sampleRate, nFFT, nMels int) *mat.Dense {
	nBins := nFFT/2 + 1
	fftFreqs := floats.Span(make([]float64, nBins), 0, float64(sampleRate)/2)

	melPoints := floats.Span(make([]float64, nMels+2), hzToMel(0), hzToMel(float64(sampleRate)/2))
	melF := make([]float64, len(melPoints))
	for i, m := range melPoints {
		melF[i] = melToHz(m)
	}

	weights := mat.NewDense(nMels, nBins, nil)
	for i := range nMels {
		lowerWidth := melF[i+1] - melF[i]
		upperWidth := melF[i+2] - melF[i+1]
		enorm := 2.0 / (melF[i+2] - melF[i])
		for j, f := range fftFreqs {
			lower := (f - melF[i]) / lowerWidth
			upper := (melF[i+2] - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			weights.Set(i, j, w*enorm)
		}
	}
	return weights
}
