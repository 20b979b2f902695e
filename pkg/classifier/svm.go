// Package classifier trains and evaluates a linear SVM on feature
// dataframes.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/zpam/trecprep/pkg/features"
)

// ErrNoSamples is returned when training or evaluating on an empty set.
var ErrNoSamples = errors.New("no samples")

// Config holds the training parameters
type Config struct {
	Epochs int     `yaml:"epochs"`
	Lambda float64 `yaml:"lambda"`
	Seed   uint64  `yaml:"seed"`
}

// DefaultConfig returns default training parameters
func DefaultConfig() Config {
	return Config{
		Epochs: 20,
		Lambda: 1e-4,
		Seed:   1,
	}
}

// LinearSVM is a linear classifier trained with the Pegasos stochastic
// sub-gradient method on the hinge loss. Features are scaled by their
// maximum absolute training value and a constant bias feature is appended.
type LinearSVM struct {
	cfg     Config
	weights []float64 // last entry is the bias
	scale   []float64
}

// NewLinearSVM creates an untrained model.
func NewLinearSVM(cfg Config) *LinearSVM {
	def := DefaultConfig()
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.Lambda <= 0 {
		cfg.Lambda = def.Lambda
	}
	return &LinearSVM{cfg: cfg}
}

// Split returns the first int(len*ratio) rows as the training set and the
// rest as the test set, keeping the original order.
func Split(vectors []features.Vector, ratio float64) (train, test []features.Vector) {
	n := int(float64(len(vectors)) * ratio)
	n = max(0, min(n, len(vectors)))
	return vectors[:n], vectors[n:]
}

// Fit trains the model. Spam is the positive class.
func (m *LinearSVM) Fit(samples []features.Vector) error {
	if len(samples) == 0 {
		return fmt.Errorf("training: %w", ErrNoSamples)
	}

	width := len(samples[0].Values)
	m.scale = make([]float64, width)
	for _, s := range samples {
		if len(s.Values) != width {
			return fmt.Errorf("document %d has %d features, expected %d", s.DocumentID, len(s.Values), width)
		}
		for i, v := range s.Values {
			m.scale[i] = math.Max(m.scale[i], math.Abs(float64(v)))
		}
	}
	for i := range m.scale {
		if m.scale[i] == 0 {
			m.scale[i] = 1
		}
	}

	xs := make([][]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = m.transform(s.Values)
		ys[i] = label(s.IsSpam)
	}

	m.weights = make([]float64, width+1)
	rng := rand.New(rand.NewPCG(m.cfg.Seed, m.cfg.Seed^0x9e3779b97f4a7c15))
	radius := 1 / math.Sqrt(m.cfg.Lambda)
	t := 0

	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		for _, i := range rng.Perm(len(xs)) {
			t++
			eta := 1 / (m.cfg.Lambda * float64(t))
			margin := ys[i] * dot(m.weights, xs[i])

			shrink := 1 - eta*m.cfg.Lambda
			for j := range m.weights {
				m.weights[j] *= shrink
			}
			if margin < 1 {
				for j, x := range xs[i] {
					m.weights[j] += eta * ys[i] * x
				}
			}

			if norm := math.Sqrt(dot(m.weights, m.weights)); norm > radius {
				f := radius / norm
				for j := range m.weights {
					m.weights[j] *= f
				}
			}
		}
	}
	return nil
}

// Decision returns the signed distance score; positive means spam.
func (m *LinearSVM) Decision(values []int) float64 {
	if m.weights == nil {
		return 0
	}
	return dot(m.weights, m.transform(values))
}

// Predict reports whether values classify as spam.
func (m *LinearSVM) Predict(values []int) bool {
	return m.Decision(values) > 0
}

// Accuracy returns the fraction of correctly classified samples.
func (m *LinearSVM) Accuracy(samples []features.Vector) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("evaluation: %w", ErrNoSamples)
	}
	correct := 0
	for _, s := range samples {
		if m.Predict(s.Values) == s.IsSpam {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

// Weights returns a copy of the learned weights, bias last.
func (m *LinearSVM) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

func (m *LinearSVM) transform(values []int) []float64 {
	x := make([]float64, len(m.scale)+1)
	for i := range m.scale {
		if i < len(values) {
			x[i] = float64(values[i]) / m.scale[i]
		}
	}
	x[len(m.scale)] = 1
	return x
}

func label(isSpam bool) float64 {
	if isSpam {
		return 1
	}
	return -1
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
