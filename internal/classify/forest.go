package classify

import "fmt"

// KindRandomForest identifies the averaging tree-ensemble base classifier.
const KindRandomForest = "random_forest"

// ClassTree is a decision tree with class-distribution leaves, stored as
// flat parallel node arrays. A node with Feature[i] < 0 is a leaf and
// Value[i] holds its class distribution; otherwise the split sends
// x[Feature[i]] <= Threshold[i] to Left[i] and the rest to Right[i].
type ClassTree struct {
	Feature   []int        `json:"feature"`
	Threshold []float64    `json:"threshold"`
	Left      []int        `json:"left"`
	Right     []int        `json:"right"`
	Value     [][2]float64 `json:"value"`
}

func (t *ClassTree) validate(featureLength int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrBundleIncompatible)
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("%w: tree node arrays misaligned (%d/%d/%d/%d/%d)",
			ErrBundleIncompatible, n, len(t.Threshold), len(t.Left), len(t.Right), len(t.Value))
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

// predict walks the tree and returns the leaf class distribution.
func (t *ClassTree) predict(x []float64) [2]float64 {
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

// RandomForest averages the leaf class distributions of its trees.
type RandomForest struct {
	Trees []ClassTree `json:"trees"`
}

func (m *RandomForest) validate(featureLength int) error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: random forest has no trees", ErrBundleIncompatible)
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(featureLength); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// PredictProba returns the mean class distribution across all trees.
func (m *RandomForest) PredictProba(x []float64) [2]float64 {
	var sum [2]float64
	for i := range m.Trees {
		p := m.Trees[i].predict(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(m.Trees))
	return [2]float64{sum[0] / n, sum[1] / n}
}

// Kind returns the classifier kind identifier.
func (m *RandomForest) Kind() string { return KindRandomForest }
