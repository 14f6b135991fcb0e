package camera

import (
	"context"
	"log/slog"
	"sync"
)

// Negotiator owns the active stream and the facing preference.
type Negotiator struct {
	device Device
	logger *slog.Logger

	mu     sync.Mutex
	facing Facing
	active Stream
	tier   Tier
	epoch  uint64 // bumped by Release
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Negotiator) { n.logger = l.With("component", "camera.negotiator") }
}

// WithFacing sets the initial facing preference.
func WithFacing(f Facing) Option {
	return func(n *Negotiator) { n.facing = f }
}

// NewNegotiator creates a negotiator over device.
func NewNegotiator(device Device, opts ...Option) *Negotiator {
	n := &Negotiator{
		device: device,
		facing: FacingEnvironment,
		logger: slog.Default().With("component", "camera.negotiator"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Acquire releases any active stream and walks the tiers from strict to
// default. The first stream obtained becomes the active one.
//
// Overlapping calls are not cancelled: the last one to complete keeps its
// stream and any stream it replaces is stopped. A Release issued while the
// call is in flight wins over it; the late stream is stopped and
// ErrSuperseded is returned. The facing preference follows the stream that
// was kept. If every tier is rejected the error wraps
// ErrCameraUnavailable and no stream is assigned.
func (n *Negotiator) Acquire(ctx context.Context, facing Facing) (Stream, error) {
	n.mu.Lock()
	epoch := n.epoch
	n.facing = facing
	old := n.active
	n.active = nil
	n.mu.Unlock()

	if old != nil {
		if err := old.Stop(); err != nil {
			n.logger.Warn("stopping previous stream failed", "error", err)
		}
	}

	var failures []*TierError
	for _, tier := range Tiers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := tier.Constraints(facing)
		stream, err := n.device.Open(ctx, c)
		if err != nil {
			failures = append(failures, &TierError{Tier: tier, Err: err})
			n.logger.Warn("camera tier rejected, trying next",
				"tier", tier.String(),
				"constraints", c.String(),
				"error", err,
			)
			continue
		}

		n.mu.Lock()
		if epoch != n.epoch {
			n.mu.Unlock()
			stream.Stop()
			n.logger.Debug("camera released during acquisition, dropping stream", "tier", tier.String())
			return nil, ErrSuperseded
		}
		prev := n.active
		n.active = stream
		n.tier = tier
		n.facing = facing
		n.mu.Unlock()

		if prev != nil && prev != stream {
			prev.Stop()
		}

		n.logger.Info("camera started",
			"tier", tier.String(),
			"constraints", c.String(),
		)
		return stream, nil
	}

	n.logger.Error("camera unavailable", "facing", facing.String())
	return nil, &ExhaustedError{Errors: failures}
}

// Toggle flips the facing preference and re-acquires.
func (n *Negotiator) Toggle(ctx context.Context) (Stream, error) {
	n.mu.Lock()
	next := n.facing.Opposite()
	n.mu.Unlock()
	return n.Acquire(ctx, next)
}

// Reacquire requests a new stream with the current preference.
func (n *Negotiator) Reacquire(ctx context.Context) (Stream, error) {
	return n.Acquire(ctx, n.Facing())
}

// SetFacing changes the preference without touching the active stream.
func (n *Negotiator) SetFacing(f Facing) {
	n.mu.Lock()
	n.facing = f
	n.mu.Unlock()
}

// Facing returns the current preference.
func (n *Negotiator) Facing() Facing {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.facing
}

// Active returns the active stream and the tier that produced it.
func (n *Negotiator) Active() (Stream, Tier, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active, n.tier, n.active != nil
}

// Release stops the active stream, if any. Acquisitions still in flight
// are superseded so they cannot install a stream afterwards.
func (n *Negotiator) Release() error {
	n.mu.Lock()
	n.epoch++
	s := n.active
	n.active = nil
	n.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Stop()
}
