package classify

// Scaler standardizes feature vectors with the per-dimension mean and
// scale fitted during training.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns the z-scored copy of x. Dimensions with zero scale
// pass through centered but unscaled, matching the fitted scaler's
// behavior on constant features.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}
