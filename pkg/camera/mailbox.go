package camera

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mailbox holds only the newest frame. Publishing overwrites whatever the
// consumer has not read yet, so a slow classifier never builds a backlog.
// It implements Stream; owners call Close when the device goes away.
type Mailbox struct {
	mu        sync.Mutex
	latest    Frame
	has       bool
	delivered uint64
	ready     chan struct{}

	done     chan struct{}
	stopOnce sync.Once
	onStop   func() error
	stopErr  error

	drops atomic.Uint64
}

// NewMailbox creates an empty mailbox. onStop runs once on the first Stop.
func NewMailbox(onStop func() error) *Mailbox {
	return &Mailbox{
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		onStop: onStop,
	}
}

// Publish stores f as the latest frame and wakes a waiting consumer.
// Frames published after Stop are discarded.
func (m *Mailbox) Publish(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
	}

	if m.has && m.latest.Seq > m.delivered {
		m.drops.Add(1)
	}
	m.latest = f
	m.has = true
	close(m.ready)
	m.ready = make(chan struct{})
}

// Next implements Stream.
func (m *Mailbox) Next(ctx context.Context) (Frame, error) {
	for {
		m.mu.Lock()
		if m.has && m.latest.Seq > m.delivered {
			f := m.latest
			m.delivered = f.Seq
			m.mu.Unlock()
			return f, nil
		}
		ready := m.ready
		m.mu.Unlock()

		select {
		case <-ready:
		case <-m.done:
			return Frame{}, ErrStreamStopped
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

// Stop implements Stream.
func (m *Mailbox) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		close(m.done)
		m.mu.Unlock()
		if m.onStop != nil {
			m.stopErr = m.onStop()
		}
	})
	return m.stopErr
}

// Done implements Stream.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

// Drops returns how many frames were overwritten before being read.
func (m *Mailbox) Drops() uint64 {
	return m.drops.Load()
}
