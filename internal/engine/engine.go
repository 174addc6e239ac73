// Package engine orchestrates one sensor event through the full
// detection pipeline: audio preprocessing and feature extraction,
// ensemble inference, physiological scoring, fusion, persistence, and
// the alert state machine.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guardband-io/distress.engine/internal/alert"
	"github.com/guardband-io/distress.engine/internal/audio"
	"github.com/guardband-io/distress.engine/internal/classify"
	"github.com/guardband-io/distress.engine/internal/config"
	"github.com/guardband-io/distress.engine/internal/fusion"
	"github.com/guardband-io/distress.engine/internal/vitals"
)

// SensorEvent is one deserialized wearable reading. AudioPCM carries
// signed 16-bit little-endian PCM at AudioSampleRate; both are optional.
type SensorEvent struct {
	DeviceID        string
	RecordedAt      time.Time
	HeartRate       *int
	Temperature     *float64
	AudioPCM        []byte
	AudioSampleRate int
	ManualTrigger   bool
	Position        *alert.Position
}

// AudioStatus reports what happened to the audio modality. Failures are
// explicit states so a caller can never mistake "unavailable" for
// "predicted calm".
type AudioStatus string

const (
	AudioOK               AudioStatus = "ok"
	AudioAbsent           AudioStatus = "no_audio"
	AudioExtractionFailed AudioStatus = "extraction_failed"
	AudioModelUnavailable AudioStatus = "model_unavailable"
)

// AudioAnalysis is the audio modality's outcome for one event. Label,
// Confidence, and ModelVersion are meaningful only when Status is
// AudioOK.
type AudioAnalysis struct {
	Status       AudioStatus `json:"status"`
	Label        int         `json:"label"`
	Confidence   float64     `json:"confidence"`
	Score        float64     `json:"score"`
	ModelVersion string      `json:"model_version,omitempty"`
}

// Evaluation is the full outcome for one evaluated event.
type Evaluation struct {
	EventID    string             `json:"event_id"`
	Audio      AudioAnalysis      `json:"audio"`
	Physio     *vitals.Assessment `json:"physio,omitempty"`
	Fusion     fusion.Result      `json:"fusion"`
	Transition *alert.Transition  `json:"transition,omitempty"`
}

// Engine wires the pipeline stages together. All stages are safe for
// concurrent use; the alert manager serializes per device internally.
type Engine struct {
	pre       *audio.Preprocessor
	extractor *audio.Extractor
	bundle    *classify.Handle
	scorer    *vitals.Scorer
	fuser     *fusion.Engine
	store     alert.Store
	alerts    *alert.Manager
	pool      *pool
	log       *zap.Logger
}

// New builds an engine from configuration. The bundle handle may hold no
// bundle yet; the audio modality then degrades to AudioModelUnavailable
// until one is swapped in.
func New(cfg *config.EngineConfig, bundle *classify.Handle, store alert.Store, alerts *alert.Manager, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scorer, err := vitals.NewScorer(cfg.GetHeartRateWeight(), cfg.GetTemperatureWeight())
	if err != nil {
		return nil, err
	}
	fuser, err := fusion.NewEngine(fusion.Config{
		AudioWeight:     cfg.GetAudioWeight(),
		PhysioWeight:    cfg.GetPhysioWeight(),
		StressThreshold: cfg.GetStressThreshold(),
		DisagreementCap: cfg.GetDisagreementCap(),
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		pre: audio.NewPreprocessor(audio.PreprocessorConfig{
			SampleRate:         cfg.GetSampleRate(),
			TargetDurationSecs: cfg.GetTargetDurationSecs(),
			TrimEnabled:        cfg.GetTrimEnabled(),
			TrimTopDB:          cfg.GetTrimTopDB(),
			DenoiseEnabled:     cfg.GetDenoiseEnabled(),
			HighpassCutoffHz:   cfg.GetHighpassCutoffHz(),
			NormalizeEnabled:   cfg.GetNormalizeEnabled(),
		}),
		extractor: audio.NewExtractor(audio.ExtractorConfig{
			SampleRate: cfg.GetSampleRate(),
			NFFT:       cfg.GetNFFT(),
			HopLength:  cfg.GetHopLength(),
			NMFCC:      cfg.GetNMFCC(),
			NMels:      cfg.GetNMels(),
		}),
		bundle: bundle,
		scorer: scorer,
		fuser:  fuser,
		store:  store,
		alerts: alerts,
		pool:   newPool(cfg.GetWorkers(), cfg.GetQueueDepth()),
		log:    log,
	}, nil
}

// Close stops the worker pool after draining queued evaluations.
func (e *Engine) Close() {
	e.pool.close()
}

// FeatureLength returns the length of the feature vectors the configured
// extractor produces. A candidate bundle must match it to be swapped in.
func (e *Engine) FeatureLength() int {
	return e.extractor.FeatureLength()
}

// Evaluate runs one event through the pipeline on the worker pool. A
// saturated queue returns ErrQueueFull without touching the event.
func (e *Engine) Evaluate(ctx context.Context, ev SensorEvent) (*Evaluation, error) {
	var result *Evaluation
	var evalErr error
	if err := e.pool.run(ctx, func() {
		result, evalErr = e.evaluate(ev)
	}); err != nil {
		return nil, err
	}
	return result, evalErr
}

// evaluate is the pipeline body, executed on a worker goroutine.
func (e *Engine) evaluate(ev SensorEvent) (*Evaluation, error) {
	if ev.DeviceID == "" {
		return nil, errors.New("event missing device id")
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}

	audioRes := e.analyzeAudio(ev)

	physio, physioErr := e.scoreVitals(ev)
	if physioErr != nil && !ev.ManualTrigger {
		// Out-of-range vitals reject the event; the manual trigger is
		// the one override that must survive any input fault.
		return nil, physioErr
	}

	var audioScore, physioScore *fusion.ModalityScore
	if audioRes.Status == AudioOK {
		audioScore = &fusion.ModalityScore{Name: "audio", Score: audioRes.Score}
	}
	if physio != nil {
		physioScore = &fusion.ModalityScore{Name: "physio", Score: physio.Combined}
	}

	audioErrored := audioRes.Status == AudioExtractionFailed || audioRes.Status == AudioModelUnavailable
	fused := e.fuser.Fuse(audioScore, physioScore, audioErrored, ev.ManualTrigger)

	eventID := uuid.NewString()
	record := &alert.EventRecord{
		ID:             eventID,
		DeviceID:       ev.DeviceID,
		RecordedAt:     ev.RecordedAt,
		HeartRate:      ev.HeartRate,
		Temperature:    ev.Temperature,
		HasAudio:       len(ev.AudioPCM) > 0,
		AudioStatus:    string(audioRes.Status),
		ManualTrigger:  ev.ManualTrigger,
		Position:       ev.Position,
		CombinedScore:  fused.CombinedScore,
		StressDetected: fused.StressDetected,
	}
	if err := e.store.InsertEvent(record); err != nil {
		return nil, fmt.Errorf("persist event: %w", err)
	}

	transition, err := e.alerts.HandleDetection(alert.Detection{
		DeviceID:     ev.DeviceID,
		EventID:      eventID,
		Result:       fused,
		Position:     ev.Position,
		ModelVersion: audioRes.ModelVersion,
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("event evaluated",
		zap.String("device_id", ev.DeviceID),
		zap.String("event_id", eventID),
		zap.String("audio_status", string(audioRes.Status)),
		zap.Float64("combined_score", fused.CombinedScore),
		zap.Bool("stress_detected", fused.StressDetected))

	return &Evaluation{
		EventID:    eventID,
		Audio:      audioRes,
		Physio:     physio,
		Fusion:     fused,
		Transition: transition,
	}, nil
}

// analyzeAudio runs the audio modality end to end. Every failure mode
// maps to an explicit status; none of them abort the event.
func (e *Engine) analyzeAudio(ev SensorEvent) AudioAnalysis {
	if len(ev.AudioPCM) == 0 {
		return AudioAnalysis{Status: AudioAbsent}
	}

	samples, err := DecodePCM16(ev.AudioPCM)
	if err != nil {
		e.log.Warn("audio decode failed",
			zap.String("device_id", ev.DeviceID), zap.Error(err))
		return AudioAnalysis{Status: AudioExtractionFailed}
	}

	// A missing source rate means the clip is already at the canonical
	// rate; Process skips resampling for sourceRate <= 0.
	processed := e.pre.Process(samples, ev.AudioSampleRate)

	features, err := e.extractor.Extract(processed)
	if err != nil {
		e.log.Warn("feature extraction failed",
			zap.String("device_id", ev.DeviceID), zap.Error(err))
		return AudioAnalysis{Status: AudioExtractionFailed}
	}

	bundle, err := e.bundle.Current()
	if err != nil {
		return AudioAnalysis{Status: AudioModelUnavailable}
	}
	pred, err := bundle.Predict(features)
	if err != nil {
		e.log.Warn("inference failed",
			zap.String("device_id", ev.DeviceID), zap.Error(err))
		return AudioAnalysis{Status: AudioModelUnavailable}
	}

	return AudioAnalysis{
		Status:       AudioOK,
		Label:        pred.Label,
		Confidence:   pred.Confidence,
		Score:        fusion.AudioScore(pred.Label, pred.Confidence),
		ModelVersion: pred.ModelVersion,
	}
}

// scoreVitals scores the physiological modality. An event with no vitals
// returns (nil, nil); out-of-range vitals return ErrInvalidReading.
func (e *Engine) scoreVitals(ev SensorEvent) (*vitals.Assessment, error) {
	a, err := e.scorer.Score(vitals.Reading{HeartRate: ev.HeartRate, Temperature: ev.Temperature})
	if errors.Is(err, vitals.ErrNoReadings) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodePCM16 converts signed 16-bit little-endian PCM into samples in
// [-1, 1]. An odd byte count is a truncated clip and is rejected.
func DecodePCM16(data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("truncated 16-bit pcm payload")
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float64(v) / math.MaxInt16
	}
	return samples, nil
}
