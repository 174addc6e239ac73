// Package vitals scores physiological sensor readings against piecewise
// stress thresholds. Heart rate and body temperature are scored
// independently and combined into one physiological stress level.
package vitals

import (
	"errors"
	"fmt"
)

// Status classifies one physiological signal relative to its normal band.
type Status string

const (
	StatusLow      Status = "low"
	StatusNormal   Status = "normal"
	StatusElevated Status = "elevated"
	StatusHigh     Status = "high"
)

// ErrInvalidReading indicates a reading outside the physiologically
// plausible range. Such readings are rejected, never scored as zero.
var ErrInvalidReading = errors.New("invalid physiological reading")

// ErrNoReadings indicates an event that carried no physiological signals
// at all. Callers treat the physiological channel as absent rather than
// as a zero stress level.
var ErrNoReadings = errors.New("no physiological readings")

// Plausibility bounds. Readings outside these are sensor faults.
const (
	heartRateMin = 0
	heartRateMax = 220
	tempMinC     = 30.0
	tempMaxC     = 45.0
)

// Heart-rate thresholds in bpm.
const (
	hrNormalLow  = 60
	hrNormalHigh = 100
	hrAbnormal   = 110
)

// Temperature thresholds in degrees Celsius.
const (
	tempNormalLow  = 36.1
	tempNormalHigh = 37.2
	tempStressHigh = 37.5
	tempAbnormal   = 38.0
)

// SignalScore is the assessment of a single physiological signal.
type SignalScore struct {
	Status      Status  `json:"status"`
	StressLevel float64 `json:"stress_level"`
	Abnormal    bool    `json:"is_abnormal"`
}

// Reading carries the optional physiological signals of one sensor event.
type Reading struct {
	HeartRate   *int
	Temperature *float64
}

// Assessment is the combined physiological output for one reading. The
// per-signal scores are nil for signals absent from the reading.
type Assessment struct {
	HeartRate   *SignalScore `json:"heart_rate,omitempty"`
	Temperature *SignalScore `json:"temperature,omitempty"`
	Combined    float64      `json:"combined"`
	Abnormal    bool         `json:"is_abnormal"`
}

// ScoreHeartRate maps a heart rate in bpm onto a stress level. Below the
// normal band resting bradycardia is reported but not treated as stress;
// above it the level ramps linearly to 1.0 at the abnormal threshold.
func ScoreHeartRate(bpm int) (SignalScore, error) {
	if bpm < heartRateMin || bpm > heartRateMax {
		return SignalScore{}, fmt.Errorf("%w: heart rate %d bpm", ErrInvalidReading, bpm)
	}
	switch {
	case bpm < hrNormalLow:
		return SignalScore{Status: StatusLow, StressLevel: 0}, nil
	case bpm <= hrNormalHigh:
		return SignalScore{Status: StatusNormal, StressLevel: 0}, nil
	case bpm <= hrAbnormal:
		level := float64(bpm-hrNormalHigh) / float64(hrAbnormal-hrNormalHigh)
		return SignalScore{Status: StatusElevated, StressLevel: level}, nil
	default:
		return SignalScore{Status: StatusHigh, StressLevel: 1, Abnormal: true}, nil
	}
}

// ScoreTemperature maps a body temperature in degrees Celsius onto a
// stress level. The level ramps from the top of the normal band and
// saturates at the stress threshold; the abnormal flag requires a
// clinically significant fever beyond that.
func ScoreTemperature(celsius float64) (SignalScore, error) {
	if celsius < tempMinC || celsius > tempMaxC {
		return SignalScore{}, fmt.Errorf("%w: temperature %.1f C", ErrInvalidReading, celsius)
	}
	switch {
	case celsius < tempNormalLow:
		return SignalScore{Status: StatusLow, StressLevel: 0}, nil
	case celsius <= tempNormalHigh:
		return SignalScore{Status: StatusNormal, StressLevel: 0}, nil
	case celsius <= tempStressHigh:
		level := (celsius - tempNormalHigh) / (tempStressHigh - tempNormalHigh)
		return SignalScore{Status: StatusElevated, StressLevel: level}, nil
	default:
		return SignalScore{
			Status:      StatusHigh,
			StressLevel: 1,
			Abnormal:    celsius >= tempAbnormal,
		}, nil
	}
}

// Scorer combines per-signal stress levels with configurable weights.
type Scorer struct {
	hrWeight   float64
	tempWeight float64
}

// NewScorer returns a scorer with the given heart-rate and temperature
// weights. The weights are renormalized over the signals present in each
// reading, so they only need a positive sum.
func NewScorer(hrWeight, tempWeight float64) (*Scorer, error) {
	if hrWeight < 0 || tempWeight < 0 || hrWeight+tempWeight == 0 {
		return nil, fmt.Errorf("invalid physiological weights %f/%f", hrWeight, tempWeight)
	}
	return &Scorer{hrWeight: hrWeight, tempWeight: tempWeight}, nil
}

// Score assesses one reading. A reading with a single signal is scored on
// that signal alone with full weight. A reading with no signals returns
// ErrNoReadings; a reading with any out-of-range signal returns
// ErrInvalidReading.
func (s *Scorer) Score(r Reading) (Assessment, error) {
	if r.HeartRate == nil && r.Temperature == nil {
		return Assessment{}, ErrNoReadings
	}

	var a Assessment
	var weighted, weightSum float64
	if r.HeartRate != nil {
		hr, err := ScoreHeartRate(*r.HeartRate)
		if err != nil {
			return Assessment{}, err
		}
		a.HeartRate = &hr
		a.Abnormal = a.Abnormal || hr.Abnormal
		weighted += s.hrWeight * hr.StressLevel
		weightSum += s.hrWeight
	}
	if r.Temperature != nil {
		tc, err := ScoreTemperature(*r.Temperature)
		if err != nil {
			return Assessment{}, err
		}
		a.Temperature = &tc
		a.Abnormal = a.Abnormal || tc.Abnormal
		weighted += s.tempWeight * tc.StressLevel
		weightSum += s.tempWeight
	}
	if weightSum > 0 {
		a.Combined = weighted / weightSum
	}
	return a, nil
}
