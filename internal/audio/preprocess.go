package audio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Denoiser internals. The denoiser runs its own short STFT independent of
// the feature extractor so the two can be tuned separately.
const (
	denoiseFrameSize = 1024
	denoiseHop       = denoiseFrameSize / 2
	// Oversubtraction factor applied to the estimated noise profile.
	denoiseOversubtract = 1.5
	// Spectral floor retained per bin so subtraction never zeroes a frame.
	denoiseFloor = 0.1
	// Fraction of the quietest frames used to estimate the noise profile.
	denoiseProfileFraction = 0.1
)

// PreprocessorConfig holds configuration for the audio preprocessing chain.
type PreprocessorConfig struct {
	SampleRate         int     // Canonical sample rate (Hz)
	TargetDurationSecs float64 // Fixed output duration (seconds)
	TrimEnabled        bool    // Trim leading/trailing low-energy segments
	TrimTopDB          float64 // Energy cutoff below peak for trimming (dB)
	DenoiseEnabled     bool    // Stationary noise-profile subtraction
	HighpassCutoffHz   float64 // Fallback high-pass cutoff (Hz)
	NormalizeEnabled   bool    // Peak-normalize amplitude to 1.0
}

// DefaultPreprocessorConfig returns default preprocessing configuration.
func DefaultPreprocessorConfig() PreprocessorConfig {
	return PreprocessorConfig{
		SampleRate:         16000,
		TargetDurationSecs: 3.0,
		TrimEnabled:        true,
		TrimTopDB:          20.0,
		DenoiseEnabled:     true,
		HighpassCutoffHz:   100.0,
		NormalizeEnabled:   true,
	}
}

// Preprocessor cleans a raw waveform into the canonical fixed-duration
// signal consumed by the feature extractor. Every step falls back to its
// unmodified input on failure rather than aborting the pipeline, and no
// step uses randomness, so output is reproducible for fixed input.
type Preprocessor struct {
	cfg PreprocessorConfig
}

// NewPreprocessor creates a preprocessor with the given configuration.
func NewPreprocessor(cfg PreprocessorConfig) *Preprocessor {
	return &Preprocessor{cfg: cfg}
}

// TargetSamples returns the canonical output length in samples.
func (p *Preprocessor) TargetSamples() int {
	return int(p.cfg.TargetDurationSecs * float64(p.cfg.SampleRate))
}

// Process runs the full preprocessing chain on samples recorded at
// sourceRate and returns a signal of exactly TargetSamples() samples at
// the canonical rate.
func (p *Preprocessor) Process(samples []float64, sourceRate int) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)

	if sourceRate > 0 && sourceRate != p.cfg.SampleRate {
		out = Resample(out, sourceRate, p.cfg.SampleRate)
	}

	if p.cfg.TrimEnabled {
		out = p.trim(out)
	}
	if p.cfg.DenoiseEnabled {
		out = p.denoise(out)
	}
	if p.cfg.NormalizeEnabled {
		out = Normalize(out)
	}
	return PadOrTruncate(out, p.TargetSamples())
}

// Resample converts samples from sourceRate to targetRate by linear
// interpolation. Returns the input unchanged when the rates match or
// either rate is invalid.
func Resample(samples []float64, sourceRate, targetRate int) []float64 {
	if sourceRate == targetRate || sourceRate <= 0 || targetRate <= 0 || len(samples) == 0 {
		return samples
	}
	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(math.Floor(float64(len(samples)) / ratio))
	if outLen < 1 {
		return samples
	}
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}

// trim removes leading and trailing frames whose RMS energy is more than
// TrimTopDB below the peak frame. If everything falls below the cutoff the
// input is returned unchanged.
func (p *Preprocessor) trim(samples []float64) []float64 {
	const frame = 2048
	const hop = 512
	if len(samples) < frame {
		return samples
	}

	numFrames := 1 + (len(samples)-frame)/hop
	rms := make([]float64, numFrames)
	peak := 0.0
	for f := 0; f < numFrames; f++ {
		var sum float64
		for i := f * hop; i < f*hop+frame; i++ {
			sum += samples[i] * samples[i]
		}
		rms[f] = math.Sqrt(sum / frame)
		if rms[f] > peak {
			peak = rms[f]
		}
	}
	if peak == 0 {
		return samples
	}

	cutoff := peak * math.Pow(10, -p.cfg.TrimTopDB/20)
	first, last := -1, -1
	for f := 0; f < numFrames; f++ {
		if rms[f] >= cutoff {
			if first < 0 {
				first = f
			}
			last = f
		}
	}
	if first < 0 {
		return samples
	}

	start := first * hop
	end := last*hop + frame
	if end > len(samples) {
		end = len(samples)
	}
	return samples[start:end]
}

// denoise applies stationary noise-profile subtraction. The noise profile
// is estimated from the quietest analysis frames, scaled, and subtracted
// from every frame's magnitude spectrum with the phase preserved. If the
// primary method cannot run (signal too short for a single frame) it falls
// back to a simple high-pass filter.
func (p *Preprocessor) denoise(samples []float64) []float64 {
	cleaned, err := spectralSubtract(samples)
	if err != nil {
		return highpass(samples, p.cfg.HighpassCutoffHz, p.cfg.SampleRate)
	}
	return cleaned
}

// spectralSubtract performs the noise-profile subtraction over a Hann
// windowed STFT with 50% overlap and reconstructs by overlap-add.
func spectralSubtract(samples []float64) ([]float64, error) {
	nfft := denoiseFrameSize
	hop := denoiseHop
	if len(samples) < nfft {
		return nil, fmt.Errorf("signal too short to denoise: %d samples", len(samples))
	}

	numFrames := 1 + (len(samples)-nfft)/hop
	numBins := nfft/2 + 1
	window := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)

	// Forward pass: windowed spectra plus per-frame energy for profiling.
	spectra := make([][]complex128, numFrames)
	mags := make([][]float64, numFrames)
	energy := make([]float64, numFrames)
	buf := make([]float64, nfft)
	for f := 0; f < numFrames; f++ {
		start := f * hop
		for i := 0; i < nfft; i++ {
			buf[i] = samples[start+i] * window[i]
		}
		coeff := fft.Coefficients(nil, buf)
		spectra[f] = coeff
		m := make([]float64, numBins)
		var e float64
		for i, c := range coeff {
			m[i] = math.Hypot(real(c), imag(c))
			e += m[i]
		}
		mags[f] = m
		energy[f] = e
	}

	// Noise profile: mean magnitude per bin across the quietest frames.
	profileCount := int(float64(numFrames) * denoiseProfileFraction)
	if profileCount < 1 {
		profileCount = 1
	}
	quiet := quietestFrames(energy, profileCount)
	profile := make([]float64, numBins)
	for _, f := range quiet {
		for i, m := range mags[f] {
			profile[i] += m
		}
	}
	for i := range profile {
		profile[i] /= float64(len(quiet))
	}

	// Subtract the profile, keeping a spectral floor and the original phase.
	for f := 0; f < numFrames; f++ {
		for i := range spectra[f] {
			m := mags[f][i]
			if m == 0 {
				continue
			}
			target := m - denoiseOversubtract*profile[i]
			floor := denoiseFloor * m
			if target < floor {
				target = floor
			}
			scale := target / m
			spectra[f][i] = complex(real(spectra[f][i])*scale, imag(spectra[f][i])*scale)
		}
	}

	// Overlap-add reconstruction. The analysis window sum is tracked so the
	// output can be renormalized; samples outside any frame keep their
	// original value.
	out := make([]float64, len(samples))
	wsum := make([]float64, len(samples))
	for f := 0; f < numFrames; f++ {
		seq := fft.Sequence(nil, spectra[f])
		start := f * hop
		for i := 0; i < nfft; i++ {
			out[start+i] += seq[i] / float64(nfft)
			wsum[start+i] += window[i]
		}
	}
	for i := range out {
		if wsum[i] > 1e-8 {
			out[i] /= wsum[i]
		} else {
			out[i] = samples[i]
		}
	}
	return out, nil
}

// quietestFrames returns the indices of the n frames with lowest energy.
func quietestFrames(energy []float64, n int) []int {
	idx := make([]int, len(energy))
	for i := range idx {
		idx[i] = i
	}
	// Selection is fine at these sizes; a full sort keeps it simple.
	for i := 0; i < n && i < len(idx); i++ {
		min := i
		for j := i + 1; j < len(idx); j++ {
			if energy[idx[j]] < energy[idx[min]] {
				min = j
			}
		}
		idx[i], idx[min] = idx[min], idx[i]
	}
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}

// highpass applies a single-pole high-pass filter with the given cutoff.
func highpass(samples []float64, cutoffHz float64, sampleRate int) []float64 {
	if len(samples) == 0 || cutoffHz <= 0 || sampleRate <= 0 {
		return samples
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / float64(sampleRate)
	alpha := rc / (rc + dt)

	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = alpha * (out[i-1] + samples[i] - samples[i-1])
	}
	return out
}

// Normalize peak-normalizes amplitude to 1.0. A silent signal is returned
// unchanged.
func Normalize(samples []float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}

// PadOrTruncate right-pads with zeros or truncates to exactly n samples.
func PadOrTruncate(samples []float64, n int) []float64 {
	if len(samples) == n {
		return samples
	}
	out := make([]float64, n)
	copy(out, samples)
	return out
}
