package classifier

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zpam/trecprep/pkg/features"
)

func separable() []features.Vector {
	points := []struct {
		values []int
		spam   bool
	}{
		{[]int{8, 0}, true}, {[]int{0, 8}, false},
		{[]int{7, 1}, true}, {[]int{1, 7}, false},
		{[]int{9, 2}, true}, {[]int{2, 9}, false},
		{[]int{6, 0}, true}, {[]int{0, 6}, false},
	}
	out := make([]features.Vector, len(points))
	for i, p := range points {
		out[i] = features.Vector{Values: p.values, DocumentID: i, IsSpam: p.spam}
	}
	return out
}

func TestLinearSVMSeparable(t *testing.T) {
	model := NewLinearSVM(Config{Epochs: 200, Lambda: 0.01, Seed: 7})
	samples := separable()
	if err := model.Fit(samples); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	acc, err := model.Accuracy(samples)
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	if acc != 1 {
		t.Errorf("expected perfect training accuracy, got %.2f", acc)
	}
	if !model.Predict([]int{10, 1}) || model.Predict([]int{1, 10}) {
		t.Error("unexpected prediction on unseen points")
	}
}

func TestLinearSVMDeterministic(t *testing.T) {
	cfg := Config{Epochs: 5, Lambda: 0.1, Seed: 42}
	a, b := NewLinearSVM(cfg), NewLinearSVM(cfg)
	a.Fit(separable())
	b.Fit(separable())
	if !reflect.DeepEqual(a.Weights(), b.Weights()) {
		t.Errorf("same seed produced different weights: %v vs %v", a.Weights(), b.Weights())
	}
	if len(a.Weights()) != 3 {
		t.Errorf("expected 2 weights plus bias, got %d", len(a.Weights()))
	}
}

func TestLinearSVMErrors(t *testing.T) {
	model := NewLinearSVM(DefaultConfig())
	if err := model.Fit(nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
	if _, err := model.Accuracy(nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}

	ragged := []features.Vector{{Values: []int{1, 2}}, {Values: []int{1}}}
	if err := model.Fit(ragged); err == nil {
		t.Error("expected error for ragged rows")
	}
	if model.Decision([]int{1, 2}) != 0 {
		t.Error("untrained model should score zero")
	}
}

func TestSplit(t *testing.T) {
	samples := separable()
	testCases := []struct {
		ratio     float64
		trainSize int
	}{
		{0.75, 6},
		{0.5, 4},
		{0, 0},
		{1, 8},
		{0.1, 0},
	}
	for _, tc := range testCases {
		train, test := Split(samples, tc.ratio)
		if len(train) != tc.trainSize || len(train)+len(test) != len(samples) {
			t.Errorf("ratio %.2f: got %d/%d", tc.ratio, len(train), len(test))
		}
		if len(train) > 0 && train[0].DocumentID != 0 {
			t.Errorf("ratio %.2f: split must keep original order", tc.ratio)
		}
	}
}
