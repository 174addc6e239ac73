package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical engine defaults file.
// This is the single source of truth for all default engine values.
const DefaultConfigPath = "config/engine.defaults.json"

// EngineConfig represents the root configuration for the distress engine.
// The schema matches the runtime reload payload so the same JSON can be
// used for both startup configuration and live updates. All fields are
// optional; the Get* methods provide fallback defaults for anything the
// file omits, so partial configs are safe.
type EngineConfig struct {
	// Audio params
	SampleRate         *int     `json:"sample_rate,omitempty"`
	TargetDurationSecs *float64 `json:"target_duration_secs,omitempty"`
	NFFT               *int     `json:"n_fft,omitempty"`
	HopLength          *int     `json:"hop_length,omitempty"`
	NMFCC              *int     `json:"n_mfcc,omitempty"`
	NMels              *int     `json:"n_mels,omitempty"`

	// Preprocessing params
	TrimEnabled      *bool    `json:"trim_enabled,omitempty"`
	TrimTopDB        *float64 `json:"trim_top_db,omitempty"`
	DenoiseEnabled   *bool    `json:"denoise_enabled,omitempty"`
	HighpassCutoffHz *float64 `json:"highpass_cutoff_hz,omitempty"`
	NormalizeEnabled *bool    `json:"normalize_enabled,omitempty"`

	// Fusion params
	AudioWeight       *float64 `json:"audio_weight,omitempty"`
	PhysioWeight      *float64 `json:"physio_weight,omitempty"`
	StressThreshold   *float64 `json:"stress_threshold,omitempty"`
	SeverityThreshold *float64 `json:"severity_threshold,omitempty"`
	DisagreementCap   *float64 `json:"disagreement_cap,omitempty"`

	// Vitals params
	HeartRateWeight   *float64 `json:"heart_rate_weight,omitempty"`
	TemperatureWeight *float64 `json:"temperature_weight,omitempty"`

	// Worker pool params
	Workers    *int `json:"workers,omitempty"`
	QueueDepth *int `json:"queue_depth,omitempty"`

	// Daemon params
	Listen     *string `json:"listen,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
	BundlePath *string `json:"bundle_path,omitempty"`
	LogPath    *string `json:"log_path,omitempty"`
}

// EmptyEngineConfig returns an EngineConfig with all fields set to nil.
// Use LoadEngineConfig to load actual values from the defaults file.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// LoadEngineConfig loads an EngineConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical engine defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *EngineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadEngineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", *c.SampleRate)
	}
	if c.TargetDurationSecs != nil && *c.TargetDurationSecs <= 0 {
		return fmt.Errorf("target_duration_secs must be positive, got %f", *c.TargetDurationSecs)
	}
	if c.NFFT != nil && (*c.NFFT < 64 || *c.NFFT&(*c.NFFT-1) != 0) {
		return fmt.Errorf("n_fft must be a power of two >= 64, got %d", *c.NFFT)
	}
	if c.HopLength != nil && *c.HopLength <= 0 {
		return fmt.Errorf("hop_length must be positive, got %d", *c.HopLength)
	}
	if c.NMFCC != nil && *c.NMFCC <= 0 {
		return fmt.Errorf("n_mfcc must be positive, got %d", *c.NMFCC)
	}
	if c.NMels != nil && *c.NMels <= 0 {
		return fmt.Errorf("n_mels must be positive, got %d", *c.NMels)
	}
	if c.NMFCC != nil && c.NMels != nil && *c.NMFCC > *c.NMels {
		return fmt.Errorf("n_mfcc (%d) cannot exceed n_mels (%d)", *c.NMFCC, *c.NMels)
	}
	if c.StressThreshold != nil && (*c.StressThreshold < 0 || *c.StressThreshold > 1) {
		return fmt.Errorf("stress_threshold must be between 0 and 1, got %f", *c.StressThreshold)
	}
	if c.SeverityThreshold != nil && (*c.SeverityThreshold < 0 || *c.SeverityThreshold > 1) {
		return fmt.Errorf("severity_threshold must be between 0 and 1, got %f", *c.SeverityThreshold)
	}
	if c.AudioWeight != nil && *c.AudioWeight < 0 {
		return fmt.Errorf("audio_weight must be non-negative, got %f", *c.AudioWeight)
	}
	if c.PhysioWeight != nil && *c.PhysioWeight < 0 {
		return fmt.Errorf("physio_weight must be non-negative, got %f", *c.PhysioWeight)
	}
	if c.AudioWeight != nil && c.PhysioWeight != nil && *c.AudioWeight+*c.PhysioWeight == 0 {
		return fmt.Errorf("audio_weight and physio_weight cannot both be zero")
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}
	if c.QueueDepth != nil && *c.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be >= 1, got %d", *c.QueueDepth)
	}
	return nil
}

// GetSampleRate returns the sample_rate value or the default.
func (c *EngineConfig) GetSampleRate() int {
	if c.SampleRate == nil {
		return 16000
	}
	return *c.SampleRate
}

// GetTargetDurationSecs returns the target_duration_secs value or the default.
func (c *EngineConfig) GetTargetDurationSecs() float64 {
	if c.TargetDurationSecs == nil {
		return 3.0
	}
	return *c.TargetDurationSecs
}

// GetNFFT returns the n_fft value or the default.
func (c *EngineConfig) GetNFFT() int {
	if c.NFFT == nil {
		return 2048
	}
	return *c.NFFT
}

// GetHopLength returns the hop_length value or the default.
func (c *EngineConfig) GetHopLength() int {
	if c.HopLength == nil {
		return 512
	}
	return *c.HopLength
}

// GetNMFCC returns the n_mfcc value or the default.
func (c *EngineConfig) GetNMFCC() int {
	if c.NMFCC == nil {
		return 13
	}
	return *c.NMFCC
}

// GetNMels returns the n_mels value or the default.
func (c *EngineConfig) GetNMels() int {
	if c.NMels == nil {
		return 64
	}
	return *c.NMels
}

// GetTrimEnabled returns the trim_enabled value or the default.
func (c *EngineConfig) GetTrimEnabled() bool {
	if c.TrimEnabled == nil {
		return true
	}
	return *c.TrimEnabled
}

// GetTrimTopDB returns the trim_top_db value or the default.
func (c *EngineConfig) GetTrimTopDB() float64 {
	if c.TrimTopDB == nil {
		return 20.0
	}
	return *c.TrimTopDB
}

// GetDenoiseEnabled returns the denoise_enabled value or the default.
func (c *EngineConfig) GetDenoiseEnabled() bool {
	if c.DenoiseEnabled == nil {
		return true
	}
	return *c.DenoiseEnabled
}

// GetHighpassCutoffHz returns the highpass_cutoff_hz value or the default.
func (c *EngineConfig) GetHighpassCutoffHz() float64 {
	if c.HighpassCutoffHz == nil {
		return 100.0
	}
	return *c.HighpassCutoffHz
}

// GetNormalizeEnabled returns the normalize_enabled value or the default.
func (c *EngineConfig) GetNormalizeEnabled() bool {
	if c.NormalizeEnabled == nil {
		return true
	}
	return *c.NormalizeEnabled
}

// GetAudioWeight returns the audio_weight value or the default.
func (c *EngineConfig) GetAudioWeight() float64 {
	if c.AudioWeight == nil {
		return 0.6
	}
	return *c.AudioWeight
}

// GetPhysioWeight returns the physio_weight value or the default.
func (c *EngineConfig) GetPhysioWeight() float64 {
	if c.PhysioWeight == nil {
		return 0.4
	}
	return *c.PhysioWeight
}

// GetStressThreshold returns the stress_threshold value or the default.
func (c *EngineConfig) GetStressThreshold() float64 {
	if c.StressThreshold == nil {
		return 0.5
	}
	return *c.StressThreshold
}

// GetSeverityThreshold returns the severity_threshold value or the default.
func (c *EngineConfig) GetSeverityThreshold() float64 {
	if c.SeverityThreshold == nil {
		return 0.8
	}
	return *c.SeverityThreshold
}

// GetDisagreementCap returns the disagreement_cap value or the default.
func (c *EngineConfig) GetDisagreementCap() float64 {
	if c.DisagreementCap == nil {
		return 0.5
	}
	return *c.DisagreementCap
}

// GetHeartRateWeight returns the heart_rate_weight value or the default.
func (c *EngineConfig) GetHeartRateWeight() float64 {
	if c.HeartRateWeight == nil {
		return 0.6
	}
	return *c.HeartRateWeight
}

// GetTemperatureWeight returns the temperature_weight value or the default.
func (c *EngineConfig) GetTemperatureWeight() float64 {
	if c.TemperatureWeight == nil {
		return 0.4
	}
	return *c.TemperatureWeight
}

// GetWorkers returns the workers value or the default.
func (c *EngineConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetQueueDepth returns the queue_depth value or the default.
func (c *EngineConfig) GetQueueDepth() int {
	if c.QueueDepth == nil {
		return 64
	}
	return *c.QueueDepth
}

// GetListen returns the listen value or the default.
func (c *EngineConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetDBPath returns the db_path value or the default.
func (c *EngineConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "distress.db"
	}
	return *c.DBPath
}

// GetBundlePath returns the bundle_path value or the default.
func (c *EngineConfig) GetBundlePath() string {
	if c.BundlePath == nil || *c.BundlePath == "" {
		return "models/ensemble.json"
	}
	return *c.BundlePath
}

// GetLogPath returns the log_path value or empty (stdout only).
func (c *EngineConfig) GetLogPath() string {
	if c.LogPath == nil {
		return ""
	}
	return *c.LogPath
}

// TargetSamples returns the canonical waveform length in samples.
func (c *EngineConfig) TargetSamples() int {
	return int(c.GetTargetDurationSecs() * float64(c.GetSampleRate()))
}
