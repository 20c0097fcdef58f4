package myaudio

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resamplerDelays caches the measured filter delay, in output samples, per
// rate pair.
var resamplerDelays sync.Map // map[ratePair]int

type ratePair struct {
	in, out int
}

// resampleMono converts a mono waveform from inputRate to outputRate. The
// output is aligned with the input (the filter delay is removed) and holds
// exactly ceil(len(input) * outputRate / inputRate) samples.
func resampleMono(input []float64, inputRate, outputRate int) ([]float64, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", inputRate, outputRate)
	}
	if inputRate == outputRate || len(input) == 0 {
		return input, nil
	}

	delay, err := resamplerDelay(inputRate, outputRate)
	if err != nil {
		return nil, err
	}

	// Trailing silence pushes the last input samples through the filter;
	// Flush alone does not drain the whole delay line.
	ratio := float64(outputRate) / float64(inputRate)
	tail := int(math.Ceil(float64(delay)/ratio)) + inputRate/10
	padded := make([]float64, len(input)+tail)
	copy(padded, input)

	output, err := runResampler(padded, inputRate, outputRate)
	if err != nil {
		return nil, err
	}

	expected := int(math.Ceil(float64(len(input)) * ratio))
	if delay >= len(output) {
		output = nil
	} else {
		output = output[delay:]
	}
	switch {
	case len(output) > expected:
		output = output[:expected]
	case len(output) < expected:
		output = append(output, make([]float64, expected-len(output))...)
	}
	return output, nil
}

// runResampler processes input with a fresh resampler and appends the
// flushed remainder.
func runResampler(input []float64, inputRate, outputRate int) ([]float64, error) {
	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(inputRate),
		OutputRate: float64(outputRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	output, err := resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("error resampling audio: %w", err)
	}
	flushed, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("error flushing resampler: %w", err)
	}
	return append(output, flushed...), nil
}

// resamplerDelay measures the group delay of the resampler for a rate pair
// by locating the response to a unit impulse. The impulse sits at input
// index in/g, which maps exactly onto output index out/g.
func resamplerDelay(inputRate, outputRate int) (int, error) {
	key := ratePair{inputRate, outputRate}
	if d, ok := resamplerDelays.Load(key); ok {
		return d.(int), nil
	}

	g := gcd(inputRate, outputRate)
	at, ideal := inputRate/g, outputRate/g

	impulse := make([]float64, at+inputRate/2+1)
	impulse[at] = 1

	response, err := runResampler(impulse, inputRate, outputRate)
	if err != nil {
		return 0, err
	}

	peak, peakAt := 0.0, ideal
	for i, v := range response {
		if a := math.Abs(v); a > peak {
			peak, peakAt = a, i
		}
	}
	delay := max(peakAt-ideal, 0)

	resamplerDelays.Store(key, delay)
	return delay, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
