package classify

import "fmt"

// KindGradientBoost identifies the boosted tree-ensemble base classifier.
const KindGradientBoost = "gradient_boost"

// RegTree is a regression tree with scalar leaves, stored as flat parallel
// node arrays with the same layout as ClassTree.
type RegTree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t *RegTree) validate(featureLength int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrBundleIncompatible)
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("%w: tree node arrays misaligned", ErrBundleIncompatible)
	}
	for i := 0; i < n; i++ {
		if t.Feature[i] >= featureLength {
			return fmt.Errorf("%w: tree node %d splits on feature %d, only %d features",
				ErrBundleIncompatible, i, t.Feature[i], featureLength)
		}
		if t.Feature[i] >= 0 && (t.Left[i] < 0 || t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n) {
			return fmt.Errorf("%w: tree node %d has child out of range", ErrBundleIncompatible, i)
		}
	}
	return nil
}

func (t *RegTree) predict(x []float64) float64 {
	i := 0
	for t.Feature[i] >= 0 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return t.Value[i]
}

// GradientBoosting is a boosted ensemble of regression trees on the logit
// scale with a sigmoid link: the trees' scaled sum plus the prior score
// forms the log-odds of the stressed class.
type GradientBoosting struct {
	Trees        []RegTree `json:"trees"`
	LearningRate float64   `json:"learning_rate"`
	InitScore    float64   `json:"init_score"`
}

func (m *GradientBoosting) validate(featureLength int) error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: gradient boosting has no trees", ErrBundleIncompatible)
	}
	if m.LearningRate <= 0 {
		return fmt.Errorf("%w: gradient boosting learning rate %f", ErrBundleIncompatible, m.LearningRate)
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(featureLength); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// PredictProba returns [P(non-stressed), P(stressed)].
func (m *GradientBoosting) PredictProba(x []float64) [2]float64 {
	logit := m.InitScore
	for i := range m.Trees {
		logit += m.LearningRate * m.Trees[i].predict(x)
	}
	p := sigmoid(logit)
	return [2]float64{1 - p, p}
}

// Kind returns the classifier kind identifier.
func (m *GradientBoosting) Kind() string { return KindGradientBoost }
