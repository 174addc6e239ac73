package audio

import (
	"math"
	"testing"
)

// sine generates a test tone at freq Hz with the given amplitude.
func sine(freq, amplitude float64, sampleRate int, durationSecs float64) []float64 {
	n := int(durationSecs * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestProcess_OutputLengthFixed(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	p := NewPreprocessor(cfg)
	want := p.TargetSamples()

	for _, durationSecs := range []float64{0.5, 1.0, 3.0, 10.0} {
		in := sine(440, 0.8, cfg.SampleRate, durationSecs)
		out := p.Process(in, cfg.SampleRate)
		if len(out) != want {
			t.Errorf("duration %.1fs: got %d samples, want %d", durationSecs, len(out), want)
		}
	}
}

func TestProcess_Deterministic(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	p := NewPreprocessor(cfg)
	in := sine(300, 0.5, cfg.SampleRate, 2.0)

	a := p.Process(in, cfg.SampleRate)
	b := p.Process(in, cfg.SampleRate)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("output differs at sample %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	p := NewPreprocessor(cfg)
	in := sine(440, 0.8, cfg.SampleRate, 1.0)
	orig := make([]float64, len(in))
	copy(orig, in)

	p.Process(in, cfg.SampleRate)
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input mutated at sample %d", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	out := Normalize([]float64{0.1, -0.5, 0.25})
	if got := out[1]; got != -1.0 {
		t.Errorf("expected peak scaled to -1.0, got %v", got)
	}
	if got := out[0]; math.Abs(got-0.2) > 1e-12 {
		t.Errorf("expected 0.2, got %v", got)
	}
}

func TestNormalize_SilentNoOp(t *testing.T) {
	in := []float64{0, 0, 0}
	out := Normalize(in)
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: expected 0, got %v", i, v)
		}
	}
}

func TestPadOrTruncate(t *testing.T) {
	in := []float64{1, 2, 3}

	padded := PadOrTruncate(in, 5)
	if len(padded) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(padded))
	}
	if padded[3] != 0 || padded[4] != 0 {
		t.Error("expected zero right-padding")
	}

	truncated := PadOrTruncate(in, 2)
	if len(truncated) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(truncated))
	}
	if truncated[0] != 1 || truncated[1] != 2 {
		t.Error("expected leading samples preserved")
	}
}

func TestResample_Halving(t *testing.T) {
	in := sine(440, 0.8, 32000, 1.0)
	out := Resample(in, 32000, 16000)
	if got, want := len(out), 16000; got != want {
		t.Errorf("expected %d samples, got %d", want, got)
	}
}

func TestResample_SameRateUnchanged(t *testing.T) {
	in := []float64{1, 2, 3}
	out := Resample(in, 16000, 16000)
	if len(out) != 3 {
		t.Fatalf("expected input returned unchanged, got %d samples", len(out))
	}
}

func TestTrim_RemovesSilencePadding(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.DenoiseEnabled = false
	cfg.NormalizeEnabled = false
	p := NewPreprocessor(cfg)

	// One second of silence, one second of tone, one second of silence.
	silence := make([]float64, cfg.SampleRate)
	tone := sine(440, 0.9, cfg.SampleRate, 1.0)
	in := append(append(append([]float64{}, silence...), tone...), silence...)

	trimmed := p.trim(in)
	if len(trimmed) >= len(in) {
		t.Fatalf("expected trimming to shorten signal, got %d of %d samples", len(trimmed), len(in))
	}
	// The tone itself must survive with some analysis-frame slack.
	if len(trimmed) < len(tone)/2 {
		t.Errorf("trimming removed too much: %d samples left", len(trimmed))
	}
}

func TestTrim_AllSilentUnchanged(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	p := NewPreprocessor(cfg)
	in := make([]float64, cfg.SampleRate)
	out := p.trim(in)
	if len(out) != len(in) {
		t.Errorf("expected silent signal returned unchanged, got %d of %d samples", len(out), len(in))
	}
}

func TestDenoise_ShortSignalFallsBackToHighpass(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	p := NewPreprocessor(cfg)
	in := sine(440, 0.5, cfg.SampleRate, 0.01) // shorter than one denoise frame
	out := p.denoise(in)
	if len(out) != len(in) {
		t.Errorf("expected fallback output with same length, got %d of %d", len(out), len(in))
	}
}

func TestSpectralSubtract_ReducesNoiseFloor(t *testing.T) {
	const sr = 16000
	tone := sine(440, 0.8, sr, 2.0)
	// Deterministic pseudo-noise overlay.
	noisy := make([]float64, len(tone))
	for i := range tone {
		noise := 0.05 * math.Sin(2*math.Pi*3931*float64(i)/sr+float64(i%17))
		noisy[i] = tone[i] + noise
	}

	cleaned, err := spectralSubtract(noisy)
	if err != nil {
		t.Fatalf("spectralSubtract: %v", err)
	}
	if len(cleaned) != len(noisy) {
		t.Fatalf("expected same length, got %d of %d", len(cleaned), len(noisy))
	}

	var noisyEnergy, cleanedEnergy float64
	for i := range noisy {
		noisyEnergy += noisy[i] * noisy[i]
		cleanedEnergy += cleaned[i] * cleaned[i]
	}
	if cleanedEnergy >= noisyEnergy {
		t.Errorf("expected subtraction to reduce energy: noisy=%.2f cleaned=%.2f", noisyEnergy, cleanedEnergy)
	}
}

func TestHighpass_AttenuatesDC(t *testing.T) {
	in := make([]float64, 16000)
	for i := range in {
		in[i] = 1.0 // pure DC
	}
	out := highpass(in, 100, 16000)

	var tailEnergy float64
	for _, s := range out[8000:] {
		tailEnergy += s * s
	}
	if tailEnergy > 1.0 {
		t.Errorf("expected DC removed by high-pass, tail energy %.4f", tailEnergy)
	}
}
