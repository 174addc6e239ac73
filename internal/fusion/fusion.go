// Package fusion combines per-modality stress scores into a single
// distress decision. A manual trigger is the fail-safe path and
// short-circuits every model-derived signal.
package fusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Reason explains what drove a detection.
type Reason string

const (
	// ReasonManualSOS marks a user-initiated trigger.
	ReasonManualSOS Reason = "MANUAL_SOS"
	// ReasonAutoStress marks a model-driven detection with audio involved.
	ReasonAutoStress Reason = "AUTO_STRESS"
	// ReasonVitalsAnomaly marks a detection carried by physiological
	// signals alone because the audio modality errored. An event that
	// simply carried no audio still reports ReasonAutoStress.
	ReasonVitalsAnomaly Reason = "VITALS_ANOMALY"
)

// ModalityScore is one modality's contribution to the fused decision.
type ModalityScore struct {
	Name  string
	Score float64
}

// Result is the fused decision for one sensor event.
type Result struct {
	CombinedScore  float64 `json:"combined_score"`
	StressDetected bool    `json:"stress_detected"`
	Confidence     float64 `json:"confidence"`
	Reason         Reason  `json:"reason,omitempty"`
	Manual         bool    `json:"manual"`
}

// Config carries the fusion weights and decision threshold.
type Config struct {
	AudioWeight     float64
	PhysioWeight    float64
	StressThreshold float64
	// DisagreementCap bounds the confidence penalty applied when the
	// present modalities disagree.
	DisagreementCap float64
}

// Engine fuses modality scores under a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine validates the configuration and returns a fusion engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.AudioWeight < 0 || cfg.PhysioWeight < 0 || cfg.AudioWeight+cfg.PhysioWeight == 0 {
		return nil, fmt.Errorf("invalid fusion weights %f/%f", cfg.AudioWeight, cfg.PhysioWeight)
	}
	if cfg.StressThreshold <= 0 || cfg.StressThreshold > 1 {
		return nil, fmt.Errorf("invalid stress threshold %f", cfg.StressThreshold)
	}
	if cfg.DisagreementCap < 0 || cfg.DisagreementCap > 1 {
		return nil, fmt.Errorf("invalid disagreement cap %f", cfg.DisagreementCap)
	}
	return &Engine{cfg: cfg}, nil
}

// AudioScore converts an ensemble prediction into a modality score: zero
// when the predicted label is non-stressed, otherwise the prediction
// confidence.
func AudioScore(label int, confidence float64) float64 {
	return float64(label) * confidence
}

// Fuse combines the present modality scores. The manual trigger bypasses
// all modality logic and always detects at full confidence. With no
// trigger and no modalities the result is a no-detection, not an error.
// audioErrored distinguishes an audio modality that failed from one that
// was never attached; it only affects the detection reason.
func (e *Engine) Fuse(audio, physio *ModalityScore, audioErrored, manualTrigger bool) Result {
	if manualTrigger {
		return Result{
			CombinedScore:  1,
			StressDetected: true,
			Confidence:     1,
			Reason:         ReasonManualSOS,
			Manual:         true,
		}
	}
	if audio == nil && physio == nil {
		return Result{}
	}

	var weighted, weightSum float64
	var scores []float64
	if audio != nil {
		weighted += e.cfg.AudioWeight * audio.Score
		weightSum += e.cfg.AudioWeight
		scores = append(scores, audio.Score)
	}
	if physio != nil {
		weighted += e.cfg.PhysioWeight * physio.Score
		weightSum += e.cfg.PhysioWeight
		scores = append(scores, physio.Score)
	}

	var combined float64
	if weightSum > 0 {
		combined = weighted / weightSum
	}

	confidence := combined
	if len(scores) > 1 {
		penalty := math.Min(math.Sqrt(stat.PopVariance(scores, nil)), e.cfg.DisagreementCap)
		confidence = combined * (1 - penalty)
	}

	r := Result{
		CombinedScore:  combined,
		StressDetected: combined >= e.cfg.StressThreshold,
		Confidence:     confidence,
	}
	if r.StressDetected {
		if audio == nil && audioErrored {
			r.Reason = ReasonVitalsAnomaly
		} else {
			r.Reason = ReasonAutoStress
		}
	}
	return r
}
