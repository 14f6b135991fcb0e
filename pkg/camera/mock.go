package camera

import (
	"context"
	"sync"
	"time"
)

// MockDevice implements Device for testing.
type MockDevice struct {
	// OpenFunc is called when Open is invoked.
	// When nil, every request succeeds with a fresh Mailbox.
	OpenFunc func(ctx context.Context, c Constraints) (Stream, error)

	mu      sync.Mutex
	calls   []Constraints
	streams []*Mailbox
}

// NewMockDevice creates a device that accepts every request.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// RejectModes returns a device that rejects requests using any of modes.
func RejectModes(modes ...FacingMode) *MockDevice {
	d := NewMockDevice()
	d.OpenFunc = func(ctx context.Context, c Constraints) (Stream, error) {
		for _, m := range modes {
			if c.Mode == m {
				return nil, ErrConstraintUnsatisfied
			}
		}
		return d.newStream(), nil
	}
	return d
}

// Open records the request and delegates to OpenFunc.
func (d *MockDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()

	if d.OpenFunc != nil {
		return d.OpenFunc(ctx, c)
	}
	return d.newStream(), nil
}

func (d *MockDevice) newStream() *Mailbox {
	m := NewMailbox(nil)
	d.mu.Lock()
	d.streams = append(d.streams, m)
	d.mu.Unlock()
	return m
}

// Calls returns the constraints of every request, in order.
func (d *MockDevice) Calls() []Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Constraints, len(d.calls))
	copy(out, d.calls)
	return out
}

// Streams returns every stream handed out by the default open path.
func (d *MockDevice) Streams() []*Mailbox {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Mailbox, len(d.streams))
	copy(out, d.streams)
	return out
}

// IsStopped reports whether s has been stopped.
func IsStopped(s Stream) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// Feed publishes synthetic frames into m every interval until m stops or ctx ends.
func Feed(ctx context.Context, m *Mailbox, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.Done():
			return
		case now := <-ticker.C:
			seq++
			m.Publish(Frame{Seq: seq, Timestamp: now, Width: 320, Height: 240})
		}
	}
}

var _ Device = (*MockDevice)(nil)
var _ Stream = (*Mailbox)(nil)
