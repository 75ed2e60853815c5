package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes feature vectors to zero mean and unit variance
// using parameters fitted on the training set. A constant feature
// (zero standard deviation) passes through unscaled.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-feature means and standard deviations
func FitScaler(data [][]float64) (*Scaler, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("fit scaler: empty training set")
	}

	dims := len(data[0])
	column := make([]float64, len(data))
	s := &Scaler{
		Means: make([]float64, dims),
		Stds:  make([]float64, dims),
	}

	for d := 0; d < dims; d++ {
		for i, row := range data {
			column[i] = row[d]
		}
		s.Means[d] = stat.Mean(column, nil)
		s.Stds[d] = stat.StdDev(column, nil)
		if s.Stds[d] == 0 || len(data) == 1 {
			s.Stds[d] = 1
		}
	}

	return s, nil
}

// Transform scales one feature vector with the fitted parameters
func (s *Scaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = (v[i] - s.Means[i]) / s.Stds[i]
	}
	return out
}

// TransformAll scales a whole training set
func (s *Scaler) TransformAll(data [][]float64) [][]float64 {
	out := make([][]float64, len(data))
	for i, v := range data {
		out[i] = s.Transform(v)
	}
	return out
}
