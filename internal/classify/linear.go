package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// KindLogReg identifies the linear discriminant base classifier.
const KindLogReg = "logreg"

// LogisticRegression is a binary logistic regression classifier.
type LogisticRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LogisticRegression) validate(featureLength int) error {
	if len(m.Coef) != featureLength {
		return fmt.Errorf("%w: logreg coefficient length %d, want %d",
			ErrBundleIncompatible, len(m.Coef), featureLength)
	}
	return nil
}

// PredictProba returns [P(non-stressed), P(stressed)].
func (m *LogisticRegression) PredictProba(x []float64) [2]float64 {
	p := sigmoid(floats.Dot(m.Coef, x) + m.Intercept)
	return [2]float64{1 - p, p}
}

// Kind returns the classifier kind identifier.
func (m *LogisticRegression) Kind() string { return KindLogReg }

// sigmoid is the standard logistic function.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
