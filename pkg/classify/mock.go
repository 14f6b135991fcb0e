package classify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-cuecam/pkg/camera"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	// When nil, Classify returns an empty result.
	ClassifyFunc func(ctx context.Context, frame camera.Frame) (Predictions, error)

	inflight    atomic.Int32
	maxInflight atomic.Int32

	mu     sync.Mutex
	frames []uint64
}

// NewMock creates a mock classifier.
func NewMock() *Mock {
	return &Mock{}
}

// Script returns a mock that replays results in order and then repeats
// the last one. A nil entry at position i is returned with errs[i].
func Script(results []Predictions, errs []error) *Mock {
	m := NewMock()
	var i int
	var mu sync.Mutex
	m.ClassifyFunc = func(ctx context.Context, frame camera.Frame) (Predictions, error) {
		mu.Lock()
		defer mu.Unlock()
		idx := i
		if idx >= len(results) {
			idx = len(results) - 1
		} else {
			i++
		}
		var err error
		if idx < len(errs) {
			err = errs[idx]
		}
		return results[idx], err
	}
	return m
}

// Classify records the call and tracks concurrent submissions.
func (m *Mock) Classify(ctx context.Context, frame camera.Frame) (Predictions, error) {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		cur := m.maxInflight.Load()
		if n <= cur || m.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.frames = append(m.frames, frame.Seq)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, frame)
	}
	return nil, nil
}

// Calls returns the number of Classify invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Frames returns the sequence numbers of every submitted frame.
func (m *Mock) Frames() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, len(m.frames))
	copy(out, m.frames)
	return out
}

// MaxInflight returns the highest number of overlapping Classify calls seen.
func (m *Mock) MaxInflight() int {
	return int(m.maxInflight.Load())
}

var _ Classifier = (*Mock)(nil)
