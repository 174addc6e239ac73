package audio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hannWindow returns an n-point periodic Hann window.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// spectrogram computes the magnitude STFT of samples with the given frame
// size and hop. Frames are Hann windowed. The result is indexed
// [frame][bin] with nfft/2+1 bins per frame.
func spectrogram(samples []float64, nfft, hop int) ([][]float64, error) {
	if len(samples) < nfft {
		return nil, fmt.Errorf("signal too short for analysis: %d samples, need %d", len(samples), nfft)
	}
	if hop <= 0 {
		return nil, fmt.Errorf("hop must be positive, got %d", hop)
	}

	numFrames := 1 + (len(samples)-nfft)/hop
	numBins := nfft/2 + 1
	window := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)

	frames := make([][]float64, numFrames)
	buf := make([]float64, nfft)
	coeff := make([]complex128, numBins)
	for f := 0; f < numFrames; f++ {
		start := f * hop
		for i := 0; i < nfft; i++ {
			buf[i] = samples[start+i] * window[i]
		}
		coeff = fft.Coefficients(coeff, buf)

		mags := make([]float64, numBins)
		for i, c := range coeff {
			mags[i] = math.Hypot(real(c), imag(c))
		}
		frames[f] = mags
	}
	return frames, nil
}

// binFrequency returns the center frequency in Hz of FFT bin i.
func binFrequency(i, nfft, sampleRate int) float64 {
	return float64(i) * float64(sampleRate) / float64(nfft)
}
