package vitals

import (
	"errors"
	"math"
	"testing"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestScoreHeartRate(t *testing.T) {
	cases := []struct {
		bpm      int
		status   Status
		level    float64
		abnormal bool
	}{
		{45, StatusLow, 0, false},
		{60, StatusNormal, 0, false},
		{75, StatusNormal, 0, false},
		{100, StatusNormal, 0, false},
		{105, StatusElevated, 0.5, false},
		{110, StatusElevated, 1.0, false},
		{115, StatusHigh, 1.0, true},
		{220, StatusHigh, 1.0, true},
	}
	for _, c := range cases {
		got, err := ScoreHeartRate(c.bpm)
		if err != nil {
			t.Errorf("hr=%d: unexpected error %v", c.bpm, err)
			continue
		}
		if got.Status != c.status {
			t.Errorf("hr=%d: status %q, want %q", c.bpm, got.Status, c.status)
		}
		if math.Abs(got.StressLevel-c.level) > 1e-9 {
			t.Errorf("hr=%d: level %v, want %v", c.bpm, got.StressLevel, c.level)
		}
		if got.Abnormal != c.abnormal {
			t.Errorf("hr=%d: abnormal %v, want %v", c.bpm, got.Abnormal, c.abnormal)
		}
	}
}

func TestScoreHeartRate_OutOfRange(t *testing.T) {
	for _, bpm := range []int{-1, 221, 500} {
		if _, err := ScoreHeartRate(bpm); !errors.Is(err, ErrInvalidReading) {
			t.Errorf("hr=%d: expected ErrInvalidReading, got %v", bpm, err)
		}
	}
}

func TestScoreTemperature(t *testing.T) {
	cases := []struct {
		celsius  float64
		status   Status
		level    float64
		abnormal bool
	}{
		{35.0, StatusLow, 0, false},
		{36.1, StatusNormal, 0, false},
		{36.8, StatusNormal, 0, false},
		{37.2, StatusNormal, 0, false},
		{37.35, StatusElevated, 0.5, false},
		{37.5, StatusElevated, 1.0, false},
		{37.9, StatusHigh, 1.0, false},
		{38.0, StatusHigh, 1.0, true},
		{39.5, StatusHigh, 1.0, true},
	}
	for _, c := range cases {
		got, err := ScoreTemperature(c.celsius)
		if err != nil {
			t.Errorf("temp=%.2f: unexpected error %v", c.celsius, err)
			continue
		}
		if got.Status != c.status {
			t.Errorf("temp=%.2f: status %q, want %q", c.celsius, got.Status, c.status)
		}
		if math.Abs(got.StressLevel-c.level) > 1e-6 {
			t.Errorf("temp=%.2f: level %v, want %v", c.celsius, got.StressLevel, c.level)
		}
		if got.Abnormal != c.abnormal {
			t.Errorf("temp=%.2f: abnormal %v, want %v", c.celsius, got.Abnormal, c.abnormal)
		}
	}
}

func TestScoreTemperature_OutOfRange(t *testing.T) {
	for _, c := range []float64{29.9, 45.1} {
		if _, err := ScoreTemperature(c); !errors.Is(err, ErrInvalidReading) {
			t.Errorf("temp=%.1f: expected ErrInvalidReading, got %v", c, err)
		}
	}
}

func TestScorer_NormalVitalsScoreZero(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	a, err := s.Score(Reading{HeartRate: intPtr(75), Temperature: floatPtr(36.8)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if a.Combined != 0 {
		t.Errorf("resting vitals should score 0, got %v", a.Combined)
	}
	if a.HeartRate.Status != StatusNormal || a.Temperature.Status != StatusNormal {
		t.Errorf("expected normal statuses, got %q/%q", a.HeartRate.Status, a.Temperature.Status)
	}
	if a.Abnormal {
		t.Error("resting vitals flagged abnormal")
	}
}

func TestScorer_BothSignalsSaturated(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	a, err := s.Score(Reading{HeartRate: intPtr(115), Temperature: floatPtr(37.9)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(a.Combined-1.0) > 1e-9 {
		t.Errorf("expected combined 1.0, got %v", a.Combined)
	}
	if !a.Abnormal {
		t.Error("expected abnormal flag from heart rate")
	}
}

func TestScorer_SingleSignalFullWeight(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}

	// Elevated heart rate alone: the half-ramp level carries full weight.
	a, err := s.Score(Reading{HeartRate: intPtr(105)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(a.Combined-0.5) > 1e-9 {
		t.Errorf("hr-only combined %v, want 0.5", a.Combined)
	}
	if a.Temperature != nil {
		t.Error("temperature score should be nil when absent")
	}

	// Saturated temperature alone.
	a, err = s.Score(Reading{Temperature: floatPtr(39.0)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(a.Combined-1.0) > 1e-9 {
		t.Errorf("temp-only combined %v, want 1.0", a.Combined)
	}
}

func TestScorer_NoReadings(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	if _, err := s.Score(Reading{}); !errors.Is(err, ErrNoReadings) {
		t.Errorf("expected ErrNoReadings, got %v", err)
	}
}

func TestScorer_RejectsInvalidReading(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	_, err = s.Score(Reading{HeartRate: intPtr(300), Temperature: floatPtr(36.8)})
	if !errors.Is(err, ErrInvalidReading) {
		t.Errorf("expected ErrInvalidReading, got %v", err)
	}
}

func TestScorer_MonotonicBeyondNormalBand(t *testing.T) {
	s, err := NewScorer(0.6, 0.4)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	prev := -1.0
	for bpm := 100; bpm <= 130; bpm++ {
		a, err := s.Score(Reading{HeartRate: intPtr(bpm)})
		if err != nil {
			t.Fatalf("hr=%d: %v", bpm, err)
		}
		if a.Combined < prev {
			t.Fatalf("hr=%d: combined %v dropped below %v", bpm, a.Combined, prev)
		}
		prev = a.Combined
	}
}

func TestNewScorer_InvalidWeights(t *testing.T) {
	if _, err := NewScorer(0, 0); err == nil {
		t.Error("expected error for zero weight sum")
	}
	if _, err := NewScorer(-0.5, 1); err == nil {
		t.Error("expected error for negative weight")
	}
}
