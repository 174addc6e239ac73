package audio

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestFeatureLength(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)

	want := 2 * (cfg.NMFCC + 12 + cfg.NMels + 7)
	if got := e.FeatureLength(); got != want {
		t.Errorf("expected feature length %d, got %d", want, got)
	}
}

func TestExtract_LengthInvariantUnderDuration(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)

	short, err := e.Extract(sine(440, 0.8, cfg.SampleRate, 1.0))
	if err != nil {
		t.Fatalf("extract 1s: %v", err)
	}
	long, err := e.Extract(sine(440, 0.8, cfg.SampleRate, 10.0))
	if err != nil {
		t.Fatalf("extract 10s: %v", err)
	}

	if len(short) != len(long) {
		t.Errorf("feature length varies with duration: %d vs %d", len(short), len(long))
	}
	if len(short) != e.FeatureLength() {
		t.Errorf("expected length %d, got %d", e.FeatureLength(), len(short))
	}
}

func TestExtract_Deterministic(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)
	in := sine(523.25, 0.7, cfg.SampleRate, 2.0)

	a, err := e.Extract(in)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	b, err := e.Extract(in)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("feature %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestExtract_TooShortFails(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())
	_, err := e.Extract(make([]float64, 100))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_SilentSignalFails(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)
	_, err := e.Extract(make([]float64, cfg.SampleRate*3))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed for silent signal, got %v", err)
	}
}

func TestExtract_ValuesFinite(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)

	features, err := e.Extract(sine(440, 0.8, cfg.SampleRate, 3.0))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("feature %d is not finite: %v", i, v)
		}
	}
}

func TestExtract_ChromaRange(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)

	features, err := e.Extract(sine(440, 0.8, cfg.SampleRate, 3.0))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	// Chroma means occupy the slice right after the MFCC block and are
	// normalized per frame, so means stay in [0, 1].
	chromaMeans := features[2*cfg.NMFCC : 2*cfg.NMFCC+12]
	for i, v := range chromaMeans {
		if v < 0 || v > 1 {
			t.Errorf("chroma mean %d out of range: %v", i, v)
		}
	}
}

func TestExtract_ConcurrentUse(t *testing.T) {
	cfg := DefaultExtractorConfig()
	e := NewExtractor(cfg)
	in := sine(440, 0.8, cfg.SampleRate, 1.0)

	want, err := e.Extract(in)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Extract(in)
			if err != nil {
				t.Errorf("concurrent extract: %v", err)
				return
			}
			for i := range got {
				if got[i] != want[i] {
					t.Errorf("concurrent extract diverged at feature %d", i)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMelFilterBank_CoversSpectrum(t *testing.T) {
	fb := newMelFilterBank(64, 2048, 16000)
	if len(fb.weights) != 64 {
		t.Fatalf("expected 64 filters, got %d", len(fb.weights))
	}
	for m, w := range fb.weights {
		var sum float64
		for _, v := range w {
			if v < 0 {
				t.Fatalf("filter %d has negative weight", m)
			}
			sum += v
		}
		if sum == 0 {
			t.Errorf("filter %d has no support", m)
		}
	}
}

func TestDCTMatrix_Orthonormal(t *testing.T) {
	const n = 8
	m := dctMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var dot float64
			for k := 0; k < n; k++ {
				dot += m[i][k] * m[j][k]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Fatalf("rows %d,%d: dot=%v want %v", i, j, dot, want)
			}
		}
	}
}
