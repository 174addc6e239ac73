package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// KindSVMRBF identifies the margin-based kernel base classifier.
const KindSVMRBF = "svm_rbf"

// SVMRBF is a support vector machine with an RBF kernel. The raw decision
// value is mapped to a probability with the fitted Platt scaling
// parameters: P(stressed) = 1 / (1 + exp(A*f + B)).
type SVMRBF struct {
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Gamma          float64     `json:"gamma"`
	Intercept      float64     `json:"intercept"`
	PlattA         float64     `json:"platt_a"`
	PlattB         float64     `json:"platt_b"`
}

func (m *SVMRBF) validate(featureLength int) error {
	if len(m.SupportVectors) == 0 {
		return fmt.Errorf("%w: svm has no support vectors", ErrBundleIncompatible)
	}
	if len(m.DualCoef) != len(m.SupportVectors) {
		return fmt.Errorf("%w: svm dual coefficients %d, support vectors %d",
			ErrBundleIncompatible, len(m.DualCoef), len(m.SupportVectors))
	}
	for i, sv := range m.SupportVectors {
		if len(sv) != featureLength {
			return fmt.Errorf("%w: svm support vector %d has length %d, want %d",
				ErrBundleIncompatible, i, len(sv), featureLength)
		}
	}
	if m.Gamma <= 0 {
		return fmt.Errorf("%w: svm gamma %f", ErrBundleIncompatible, m.Gamma)
	}
	return nil
}

// decision computes the raw kernel decision value for x.
func (m *SVMRBF) decision(x []float64) float64 {
	f := m.Intercept
	for i, sv := range m.SupportVectors {
		d := floats.Distance(x, sv, 2)
		f += m.DualCoef[i] * math.Exp(-m.Gamma*d*d)
	}
	return f
}

// PredictProba returns [P(non-stressed), P(stressed)].
func (m *SVMRBF) PredictProba(x []float64) [2]float64 {
	p := 1.0 / (1.0 + math.Exp(m.PlattA*m.decision(x)+m.PlattB))
	return [2]float64{1 - p, p}
}

// Kind returns the classifier kind identifier.
func (m *SVMRBF) Kind() string { return KindSVMRBF }
