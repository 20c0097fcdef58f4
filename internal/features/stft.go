package features

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/mat"
)

// periodicHann returns an n-point Hann window suitable for spectral analysis,
// the first n points of an (n+1)-point symmetric window.
func periodicHann(n int) []float64 {
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[:n]
}

// frameCount returns the number of centered STFT frames for n samples.
func frameCount(n, nFFT, hop int) int {
	return 1 + (n+2*(nFFT/2)-nFFT)/hop
}

// melSpectrogram computes basis × |STFT(y)|² with centered frames. The
// signal is zero-padded by nFFT/2 on both sides, giving 1+len(y)/hop frames.
// Each power frame is projected as soon as it is computed, so only the
// rows(basis)×frames result is held in memory.
func melSpectrogram(y []float64, nFFT, hop int, basis *mat.Dense) *mat.Dense {
	pad := nFFT / 2
	padded := make([]float64, len(y)+2*pad)
	copy(padded[pad:], y)

	nFrames := frameCount(len(y), nFFT, hop)
	nBins := nFFT/2 + 1
	nBands, _ := basis.Dims()

	win := periodicHann(nFFT)
	fft := fourier.NewFFT(nFFT)
	frame := make([]float64, nFFT)
	coeffs := make([]complex128, nBins)
	power := mat.NewVecDense(nBins, nil)
	band := mat.NewVecDense(nBands, nil)

	out := mat.NewDense(nBands, nFrames, nil)
	for t := range nFrames {
		start := t * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power.SetVec(k, re*re+im*im)
		}
		band.MulVec(basis, power)
		out.SetCol(t, band.RawVector().Data)
	}
	return out
}
