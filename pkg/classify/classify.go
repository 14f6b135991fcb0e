// Package classify defines the image classifier consumed by the
// recognition loop, plus an OpenCV DNN implementation.
package classify

import (
	"context"
	"sort"

	"github.com/teslashibe/go-cuecam/pkg/camera"
)

// Prediction is one ranked label.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0-1
}

// Predictions is sorted by descending confidence.
type Predictions []Prediction

// Top returns the highest ranked prediction.
func (p Predictions) Top() (Prediction, bool) {
	if len(p) == 0 {
		return Prediction{}, false
	}
	return p[0], true
}

// Head returns at most n predictions.
func (p Predictions) Head(n int) Predictions {
	if len(p) <= n {
		return p
	}
	return p[:n]
}

// Sort orders predictions by descending confidence, stable on ties.
func (p Predictions) Sort() {
	sort.SliceStable(p, func(i, j int) bool {
		return p[i].Confidence > p[j].Confidence
	})
}

// Classifier labels a single frame.
// Implementations return predictions already sorted descending.
type Classifier interface {
	Classify(ctx context.Context, frame camera.Frame) (Predictions, error)
}
