// Package classify implements inference over a versioned, immutable
// classifier bundle: a fitted feature scaler plus an ensemble of base
// probabilistic classifiers combined by weighted soft voting. Bundles are
// produced by an offline training process and are never mutated at
// inference time.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// SchemaVersion is the bundle schema this build understands. Bundles
// written for any other schema are rejected at load time.
const SchemaVersion = 1

// Class labels.
const (
	LabelNonStressed = 0
	LabelStressed    = 1
)

var (
	// ErrModelUnavailable indicates no bundle is loaded. It must be
	// distinguished from a non-stressed prediction by all callers.
	ErrModelUnavailable = errors.New("classifier bundle unavailable")

	// ErrBundleIncompatible indicates a bundle whose schema, feature
	// length, or classifier inventory does not match this build or the
	// configured feature extractor.
	ErrBundleIncompatible = errors.New("classifier bundle incompatible")
)

// Model is one base probabilistic classifier. PredictProba returns the
// class probability vector [P(non-stressed), P(stressed)].
type Model interface {
	PredictProba(x []float64) [2]float64
	Kind() string
}

// WeightedModel pairs a base classifier with its soft-voting weight.
type WeightedModel struct {
	Kind   string
	Weight float64
	Model  Model
}

// Bundle is the immutable inference artifact: scaler, base classifiers,
// and ensemble weights. A Bundle is read-only after Parse; share freely.
type Bundle struct {
	ModelVersion  string
	FeatureLength int
	Scaler        Scaler
	Models        []WeightedModel
}

// Prediction is the ensemble output for one feature vector.
type Prediction struct {
	Label         int
	Confidence    float64
	Probabilities [2]float64
	ModelVersion  string
}

type bundleJSON struct {
	SchemaVersion int              `json:"schema_version"`
	ModelVersion  string           `json:"model_version"`
	FeatureLength int              `json:"feature_length"`
	Scaler        Scaler           `json:"scaler"`
	Classifiers   []classifierJSON `json:"classifiers"`
}

type classifierJSON struct {
	Kind   string          `json:"kind"`
	Weight float64         `json:"weight"`
	Params json.RawMessage `json:"params"`
}

// LoadBundle reads and parses a serialized bundle from disk.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return ParseBundle(data)
}

// ParseBundle decodes and validates a serialized bundle. Schema or
// dimension mismatches return ErrBundleIncompatible rather than a bundle
// that would silently misalign against the feature extractor.
func ParseBundle(data []byte) (*Bundle, error) {
	var raw bundleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if raw.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrBundleIncompatible, raw.SchemaVersion, SchemaVersion)
	}
	if raw.FeatureLength <= 0 {
		return nil, fmt.Errorf("%w: feature length %d", ErrBundleIncompatible, raw.FeatureLength)
	}
	if len(raw.Scaler.Mean) != raw.FeatureLength || len(raw.Scaler.Scale) != raw.FeatureLength {
		return nil, fmt.Errorf("%w: scaler dimensions %d/%d, want %d",
			ErrBundleIncompatible, len(raw.Scaler.Mean), len(raw.Scaler.Scale), raw.FeatureLength)
	}
	if len(raw.Classifiers) == 0 {
		return nil, fmt.Errorf("%w: no classifiers", ErrBundleIncompatible)
	}

	b := &Bundle{
		ModelVersion:  raw.ModelVersion,
		FeatureLength: raw.FeatureLength,
		Scaler:        raw.Scaler,
	}
	var weightSum float64
	for i, c := range raw.Classifiers {
		if c.Weight < 0 {
			return nil, fmt.Errorf("%w: classifier %d has negative weight %f", ErrBundleIncompatible, i, c.Weight)
		}
		weightSum += c.Weight
		model, err := parseModel(c.Kind, c.Params, raw.FeatureLength)
		if err != nil {
			return nil, err
		}
		b.Models = append(b.Models, WeightedModel{Kind: c.Kind, Weight: c.Weight, Model: model})
	}
	if weightSum == 0 {
		return nil, fmt.Errorf("%w: all classifier weights are zero", ErrBundleIncompatible)
	}
	return b, nil
}

// parseModel decodes one base classifier's parameters.
func parseModel(kind string, params json.RawMessage, featureLength int) (Model, error) {
	switch kind {
	case KindLogReg:
		var m LogisticRegression
		if err := json.Unmarshal(params, &m); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		if err := m.validate(featureLength); err != nil {
			return nil, err
		}
		return &m, nil
	case KindRandomForest:
		var m RandomForest
		if err := json.Unmarshal(params, &m); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		if err := m.validate(featureLength); err != nil {
			return nil, err
		}
		return &m, nil
	case KindGradientBoost:
		var m GradientBoosting
		if err := json.Unmarshal(params, &m); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		if err := m.validate(featureLength); err != nil {
			return nil, err
		}
		return &m, nil
	case KindSVMRBF:
		var m SVMRBF
		if err := json.Unmarshal(params, &m); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
		if err := m.validate(featureLength); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier kind %q", ErrBundleIncompatible, kind)
	}
}

// CompatibleWith checks the bundle against the feature-vector length the
// extractor produces, so a mismatched bundle is rejected at load time
// instead of failing every inference after the swap.
func (b *Bundle) CompatibleWith(featureLength int) error {
	if b.FeatureLength != featureLength {
		return fmt.Errorf("%w: bundle expects %d features, extractor produces %d",
			ErrBundleIncompatible, b.FeatureLength, featureLength)
	}
	return nil
}

// Predict standardizes the feature vector and runs the weighted soft vote.
// The label is the argmax of the averaged class probabilities and the
// confidence is the averaged probability of the winning class.
func (b *Bundle) Predict(features []float64) (Prediction, error) {
	if len(features) != b.FeatureLength {
		return Prediction{}, fmt.Errorf("%w: feature vector length %d, bundle expects %d",
			ErrBundleIncompatible, len(features), b.FeatureLength)
	}

	x := b.Scaler.Transform(features)

	var avg [2]float64
	var weightSum float64
	for _, wm := range b.Models {
		if wm.Weight == 0 {
			continue
		}
		p := wm.Model.PredictProba(x)
		avg[0] += wm.Weight * p[0]
		avg[1] += wm.Weight * p[1]
		weightSum += wm.Weight
	}
	avg[0] /= weightSum
	avg[1] /= weightSum

	label := LabelNonStressed
	if avg[LabelStressed] > avg[LabelNonStressed] {
		label = LabelStressed
	}
	return Prediction{
		Label:         label,
		Confidence:    avg[label],
		Probabilities: avg,
		ModelVersion:  b.ModelVersion,
	}, nil
}
