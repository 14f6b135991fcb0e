package cue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// MockPlayer implements Player for testing. Files listed in Available
// play; anything else returns ErrMediaMissing.
type MockPlayer struct {
	// StartFunc overrides the default behavior when set.
	StartFunc func(ctx context.Context, path string) (Playback, error)

	// Hold keeps every playback running until Release is called.
	Hold bool

	mu        sync.Mutex
	available map[string]bool
	starts    []string
	playing   []*MockPlayback
	inflight  atomic.Int32
	maxFlight atomic.Int32
}

// NewMockPlayer creates a player that can play the named files (base names).
func NewMockPlayer(available ...string) *MockPlayer {
	m := &MockPlayer{available: make(map[string]bool)}
	for _, f := range available {
		m.available[f] = true
	}
	return m
}

// Start records the request and plays if the file is available.
func (m *MockPlayer) Start(ctx context.Context, path string) (Playback, error) {
	m.mu.Lock()
	m.starts = append(m.starts, filepath.Base(path))
	m.mu.Unlock()

	if m.StartFunc != nil {
		return m.StartFunc(ctx, path)
	}

	m.mu.Lock()
	ok := m.available[filepath.Base(path)]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMediaMissing, path)
	}

	n := m.inflight.Add(1)
	for {
		cur := m.maxFlight.Load()
		if n <= cur || m.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	pb := newMockPlayback(func() { m.inflight.Add(-1) })
	if !m.Hold {
		pb.Finish(nil)
	}
	m.mu.Lock()
	m.playing = append(m.playing, pb)
	m.mu.Unlock()
	return pb, nil
}

// Starts returns the base names of every Start request, in order.
func (m *MockPlayer) Starts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.starts))
	copy(out, m.starts)
	return out
}

// Playbacks returns every started playback.
func (m *MockPlayer) Playbacks() []*MockPlayback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockPlayback, len(m.playing))
	copy(out, m.playing)
	return out
}

// MaxInflight returns the highest number of simultaneous playbacks seen.
func (m *MockPlayer) MaxInflight() int {
	return int(m.maxFlight.Load())
}

// MockPlayback is a Playback completed by the test.
type MockPlayback struct {
	done   chan struct{}
	once   sync.Once
	err    error
	onDone func()
}

func newMockPlayback(onDone func()) *MockPlayback {
	return &MockPlayback{done: make(chan struct{}), onDone: onDone}
}

// Finish ends playback with err. Only the first call counts.
func (p *MockPlayback) Finish(err error) {
	p.once.Do(func() {
		p.err = err
		if p.onDone != nil {
			p.onDone()
		}
		close(p.done)
	})
}

// Wait implements Playback.
func (p *MockPlayback) Wait() error {
	<-p.done
	return p.err
}

// Stop implements Playback.
func (p *MockPlayback) Stop() error {
	p.Finish(context.Canceled)
	return nil
}

var _ Player = (*MockPlayer)(nil)
var _ Playback = (*MockPlayback)(nil)
