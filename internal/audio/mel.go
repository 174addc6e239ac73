package audio

import "math"

// dB floor applied when log-scaling mel band power, matching the usual
// 80 dB dynamic range cut.
const melTopDB = 80.0

// hzToMel converts a frequency in Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts a mel-scale value back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

// melFilterBank is a bank of triangular filters mapping FFT bins to mel
// bands. Rows are filters, columns are the nfft/2+1 spectrum bins.
type melFilterBank struct {
	weights [][]float64
	nMels   int
}

// newMelFilterBank constructs nMels triangular filters spanning 0 Hz to
// sampleRate/2, evenly spaced on the mel scale.
func newMelFilterBank(nMels, nfft, sampleRate int) *melFilterBank {
	numBins := nfft/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)

	// Filter edge frequencies: nMels+2 points on the mel scale.
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(nMels+1))
	}

	weights := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		w := make([]float64, numBins)
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		for b := 0; b < numBins; b++ {
			f := binFrequency(b, nfft, sampleRate)
			switch {
			case f <= lower || f >= upper:
				// outside the triangle
			case f <= center:
				if center > lower {
					w[b] = (f - lower) / (center - lower)
				}
			default:
				if upper > center {
					w[b] = (upper - f) / (upper - center)
				}
			}
		}
		weights[m] = w
	}
	return &melFilterBank{weights: weights, nMels: nMels}
}

// apply projects one frame's power spectrum onto the mel bands.
func (fb *melFilterBank) apply(power []float64) []float64 {
	out := make([]float64, fb.nMels)
	for m, w := range fb.weights {
		var sum float64
		for b, p := range power {
			if w[b] != 0 {
				sum += w[b] * p
			}
		}
		out[m] = sum
	}
	return out
}

// powerToDB converts mel band powers to decibels relative to the maximum
// band across the whole spectrogram, floored at -melTopDB.
func powerToDB(frames [][]float64) [][]float64 {
	ref := 0.0
	for _, frame := range frames {
		for _, p := range frame {
			if p > ref {
				ref = p
			}
		}
	}
	if ref == 0 {
		ref = 1e-10
	}

	out := make([][]float64, len(frames))
	for f, frame := range frames {
		row := make([]float64, len(frame))
		for i, p := range frame {
			if p < 1e-10 {
				p = 1e-10
			}
			db := 10 * math.Log10(p/ref)
			if db < -melTopDB {
				db = -melTopDB
			}
			row[i] = db
		}
		out[f] = row
	}
	return out
}

// dctMatrix returns the orthonormal DCT-II matrix with nCoeffs rows and
// nInputs columns, used to decorrelate log-mel energies into cepstral
// coefficients.
func dctMatrix(nCoeffs, nInputs int) [][]float64 {
	m := make([][]float64, nCoeffs)
	scale0 := math.Sqrt(1.0 / float64(nInputs))
	scale := math.Sqrt(2.0 / float64(nInputs))
	for k := 0; k < nCoeffs; k++ {
		row := make([]float64, nInputs)
		s := scale
		if k == 0 {
			s = scale0
		}
		for n := 0; n < nInputs; n++ {
			row[n] = s * math.Cos(math.Pi*float64(k)*(2*float64(n)+1)/(2*float64(nInputs)))
		}
		m[k] = row
	}
	return m
}
