package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrExtractionFailed indicates the signal was too short or degenerate to
// produce a feature vector. Callers must treat this as "audio modality
// unavailable", never as a stress score of zero.
var ErrExtractionFailed = errors.New("audio feature extraction failed")

// ExtractorConfig holds configuration for the feature extractor.
type ExtractorConfig struct {
	SampleRate int // Sample rate of the canonical waveform (Hz)
	NFFT       int // Analysis frame size (samples, power of two)
	HopLength  int // Hop between frames (samples)
	NMFCC      int // Number of cepstral coefficients
	NMels      int // Number of mel bands
}

// DefaultExtractorConfig returns default extractor configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SampleRate: 16000,
		NFFT:       2048,
		HopLength:  512,
		NMFCC:      13,
		NMels:      64,
	}
}

// Extractor converts a canonical waveform into a fixed-length feature
// vector: mean and standard deviation across time frames of the cepstral
// coefficients, chroma energies, log-mel band magnitudes, and spectral
// contrast bands, concatenated in that order. The filter bank and DCT
// matrix are precomputed at construction and never mutated afterwards, so
// a single Extractor is safe for concurrent use across events.
type Extractor struct {
	cfg       ExtractorConfig
	melBank   *melFilterBank
	dct       [][]float64
	bandEdges []float64
}

// NewExtractor creates an extractor with the given configuration.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	return &Extractor{
		cfg:       cfg,
		melBank:   newMelFilterBank(cfg.NMels, cfg.NFFT, cfg.SampleRate),
		dct:       dctMatrix(cfg.NMFCC, cfg.NMels),
		bandEdges: contrastBandEdges(cfg.SampleRate),
	}
}

// FeatureLength returns the length of the extracted vector. It depends on
// extractor configuration only, never on input duration.
func (e *Extractor) FeatureLength() int {
	return 2 * (e.cfg.NMFCC + NumChroma + e.cfg.NMels + NumContrastBands)
}

// Extract computes the feature vector for a canonical waveform. A signal
// shorter than one analysis frame, or with no energy at all, returns
// ErrExtractionFailed.
func (e *Extractor) Extract(samples []float64) ([]float64, error) {
	if len(samples) < e.cfg.NFFT {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", ErrExtractionFailed, len(samples), e.cfg.NFFT)
	}
	if silent(samples) {
		return nil, fmt.Errorf("%w: signal has no energy", ErrExtractionFailed)
	}

	mags, err := spectrogram(samples, e.cfg.NFFT, e.cfg.HopLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	numFrames := len(mags)
	power := make([][]float64, numFrames)
	for f, frame := range mags {
		p := make([]float64, len(frame))
		for i, m := range frame {
			p[i] = m * m
		}
		power[f] = p
	}

	// Per-frame feature families.
	melFrames := make([][]float64, numFrames)
	chromaFrames := make([][]float64, numFrames)
	contrastFrames := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		melFrames[f] = e.melBank.apply(power[f])
		chromaFrames[f] = chromaFrame(power[f], e.cfg.NFFT, e.cfg.SampleRate)
		contrastFrames[f] = contrastFrame(mags[f], e.bandEdges, e.cfg.NFFT, e.cfg.SampleRate)
	}

	melDB := powerToDB(melFrames)
	mfccFrames := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		mfccFrames[f] = applyDCT(e.dct, melDB[f])
	}

	// Assemble: [mfcc mean, mfcc std, chroma mean, chroma std,
	//            mel mean, mel std, contrast mean, contrast std].
	out := make([]float64, 0, e.FeatureLength())
	out = appendMeanStd(out, mfccFrames, e.cfg.NMFCC)
	out = appendMeanStd(out, chromaFrames, NumChroma)
	out = appendMeanStd(out, melDB, e.cfg.NMels)
	out = appendMeanStd(out, contrastFrames, NumContrastBands)
	return out, nil
}

// applyDCT multiplies the DCT matrix by one frame of log-mel energies.
func applyDCT(dct [][]float64, melDB []float64) []float64 {
	out := make([]float64, len(dct))
	for k, row := range dct {
		var sum float64
		for n, v := range melDB {
			sum += row[n] * v
		}
		out[k] = sum
	}
	return out
}

// appendMeanStd appends the per-column mean followed by the per-column
// population standard deviation of frames to dst.
func appendMeanStd(dst []float64, frames [][]float64, cols int) []float64 {
	n := float64(len(frames))
	means := make([]float64, cols)
	for _, frame := range frames {
		for c := 0; c < cols; c++ {
			means[c] += frame[c]
		}
	}
	for c := range means {
		means[c] /= n
	}

	stds := make([]float64, cols)
	for _, frame := range frames {
		for c := 0; c < cols; c++ {
			d := frame[c] - means[c]
			stds[c] += d * d
		}
	}
	for c := range stds {
		stds[c] = math.Sqrt(stds[c] / n)
	}

	dst = append(dst, means...)
	return append(dst, stds...)
}

// silent reports whether the signal carries no energy at all.
func silent(samples []float64) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}
