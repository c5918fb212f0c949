package preference

import (
	"errors"
	"math"
)

var ErrOneClass = errors.New("training set needs both positive and negative examples")

// Model is a linear max-margin classifier over standardized feature
// vectors. Fields are exported so a trained model round-trips through the
// result cache as JSON.
type Model struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// Train fits the model with hinge-loss subgradient descent. The pass order
// over samples is fixed, so training is deterministic for a given input.
func Train(samples [][]float64, labels []int, cfg Config) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("empty or mismatched training set")
	}

	hasPositive, hasNegative := false, false
	for _, label := range labels {
		if label > 0 {
			hasPositive = true
		} else {
			hasNegative = true
		}
	}
	if !hasPositive || !hasNegative {
		return nil, ErrOneClass
	}

	dim := len(samples[0])
	m := &Model{
		Weights: make([]float64, dim),
		Mean:    make([]float64, dim),
		Scale:   make([]float64, dim),
	}
	m.fitScaler(samples)

	standardized := make([][]float64, len(samples))
	for i, sample := range samples {
		standardized[i] = m.standardize(sample)
	}

	// labels in {-1, +1}
	signs := make([]float64, len(labels))
	for i, label := range labels {
		if label > 0 {
			signs[i] = 1
		} else {
			signs[i] = -1
		}
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		lr := cfg.LearningRate / (1.0 + float64(epoch)*0.01)
		for i, x := range standardized {
			margin := signs[i] * (dot(m.Weights, x) + m.Bias)
			for j := range m.Weights {
				grad := cfg.Regularization * m.Weights[j]
				if margin < 1 {
					grad -= signs[i] * x[j]
				}
				m.Weights[j] -= lr * grad
			}
			if margin < 1 {
				m.Bias += lr * signs[i]
			}
		}
	}

	return m, nil
}

// Score returns the signed distance of the feature vector from the
// decision boundary. Positive means predicted preference.
func (m *Model) Score(features []float64) float64 {
	return dot(m.Weights, m.standardize(features)) + m.Bias
}

func (m *Model) fitScaler(samples [][]float64) {
	n := float64(len(samples))
	for j := range m.Mean {
		var sum float64
		for _, sample := range samples {
			sum += sample[j]
		}
		m.Mean[j] = sum / n
	}
	for j := range m.Scale {
		var sumSq float64
		for _, sample := range samples {
			d := sample[j] - m.Mean[j]
			sumSq += d * d
		}
		m.Scale[j] = math.Sqrt(sumSq / n)
		if m.Scale[j] == 0 {
			m.Scale[j] = 1
		}
	}
}

func (m *Model) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - m.Mean[j]) / m.Scale[j]
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
