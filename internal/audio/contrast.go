package audio

import (
	"math"
	"sort"
)

// NumContrastBands is the number of spectral-contrast bands.
const NumContrastBands = 7

// contrastBaseHz is the upper edge of the first contrast band; the
// remaining bands are octave-spaced above it.
const contrastBaseHz = 200.0

// contrastQuantile is the fraction of band bins treated as the peak or
// valley when computing the contrast.
const contrastQuantile = 0.02

// contrastBandEdges returns NumContrastBands+1 band edge frequencies:
// [0, base, 2*base, 4*base, ...] capped at the Nyquist frequency.
func contrastBandEdges(sampleRate int) []float64 {
	nyquist := float64(sampleRate) / 2
	edges := make([]float64, NumContrastBands+1)
	edges[0] = 0
	for i := 1; i <= NumContrastBands; i++ {
		e := contrastBaseHz * math.Pow(2, float64(i-1))
		if e > nyquist {
			e = nyquist
		}
		edges[i] = e
	}
	edges[NumContrastBands] = nyquist
	return edges
}

// contrastFrame computes the spectral contrast (peak minus valley, in dB)
// for each octave band of one frame's magnitude spectrum.
func contrastFrame(mags []float64, edges []float64, nfft, sampleRate int) []float64 {
	out := make([]float64, NumContrastBands)
	for band := 0; band < NumContrastBands; band++ {
		lo, hi := edges[band], edges[band+1]

		var bandMags []float64
		for b := range mags {
			f := binFrequency(b, nfft, sampleRate)
			if f >= lo && f < hi {
				bandMags = append(bandMags, mags[b])
			}
		}
		if len(bandMags) == 0 {
			continue
		}
		sort.Float64s(bandMags)

		k := int(float64(len(bandMags)) * contrastQuantile)
		if k < 1 {
			k = 1
		}
		valley := meanDB(bandMags[:k])
		peak := meanDB(bandMags[len(bandMags)-k:])
		out[band] = peak - valley
	}
	return out
}

// meanDB returns the mean of magnitudes converted to decibels.
func meanDB(mags []float64) float64 {
	var sum float64
	for _, m := range mags {
		if m < 1e-10 {
			m = 1e-10
		}
		sum += 20 * math.Log10(m)
	}
	return sum / float64(len(mags))
}
