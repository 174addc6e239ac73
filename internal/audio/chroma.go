package audio

import "math"

// NumChroma is the number of pitch classes in a chroma vector.
const NumChroma = 12

// chromaLowCutoffHz excludes near-DC bins whose pitch class is meaningless.
const chromaLowCutoffHz = 50.0

// chromaFrame folds one frame's power spectrum into 12 pitch-class
// energies and normalizes the frame by its maximum energy.
func chromaFrame(power []float64, nfft, sampleRate int) []float64 {
	out := make([]float64, NumChroma)
	for b := 1; b < len(power); b++ {
		f := binFrequency(b, nfft, sampleRate)
		if f < chromaLowCutoffHz {
			continue
		}
		// MIDI note number, folded to a pitch class.
		midi := 69.0 + 12.0*math.Log2(f/440.0)
		pc := int(math.Round(midi)) % NumChroma
		if pc < 0 {
			pc += NumChroma
		}
		out[pc] += power[b]
	}

	max := 0.0
	for _, e := range out {
		if e > max {
			max = e
		}
	}
	if max > 0 {
		for i := range out {
			out[i] /= max
		}
	}
	return out
}
