package camera

import (
	"context"
	"fmt"
	"time"
)

// Facing is the preferred camera direction.
type Facing int

const (
	// FacingEnvironment points away from the user (rear camera).
	FacingEnvironment Facing = iota
	// FacingUser points at the user (front camera).
	FacingUser
)

// String returns the constraint name for the facing.
func (f Facing) String() string {
	if f == FacingUser {
		return "user"
	}
	return "environment"
}

// Opposite returns the other facing.
func (f Facing) Opposite() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// ParseFacing parses "user" or "environment".
func ParseFacing(s string) (Facing, error) {
	switch s {
	case "user":
		return FacingUser, nil
	case "environment":
		return FacingEnvironment, nil
	}
	return FacingEnvironment, fmt.Errorf("camera: unknown facing %q", s)
}

// Tier is one fallback level of constraint strictness.
type Tier int

const (
	// TierStrict requires the exact facing.
	TierStrict Tier = iota
	// TierLoose treats the facing as a hint.
	TierLoose
	// TierDefault accepts any camera.
	TierDefault
)

// Tiers returns all tiers from strictest to loosest.
func Tiers() []Tier {
	return []Tier{TierStrict, TierLoose, TierDefault}
}

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierLoose:
		return "loose"
	case TierDefault:
		return "default"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// FacingMode says how a facing constraint is applied.
type FacingMode int

const (
	// FacingExact must match or the request is rejected.
	FacingExact FacingMode = iota
	// FacingPreferred is a hint the device may ignore.
	FacingPreferred
	// FacingAbsent sends no facing at all.
	FacingAbsent
)

// Constraints is the shape of one device request.
type Constraints struct {
	Facing Facing
	Mode   FacingMode
}

// Constraints builds the device request for this tier.
func (t Tier) Constraints(f Facing) Constraints {
	switch t {
	case TierStrict:
		return Constraints{Facing: f, Mode: FacingExact}
	case TierLoose:
		return Constraints{Facing: f, Mode: FacingPreferred}
	default:
		return Constraints{Mode: FacingAbsent}
	}
}

// String renders constraints for logs.
func (c Constraints) String() string {
	switch c.Mode {
	case FacingExact:
		return fmt.Sprintf("facing=exact:%s", c.Facing)
	case FacingPreferred:
		return fmt.Sprintf("facing=%s", c.Facing)
	}
	return "facing=any"
}

// Frame is a single captured image. The pipeline treats it opaquely.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	JPEG      []byte
}

// Stream is a live frame source owned by whoever acquired it.
type Stream interface {
	// Next blocks until a frame newer than the last one returned is available.
	// Returns ErrStreamStopped once the stream has been stopped.
	Next(ctx context.Context) (Frame, error)

	// Stop releases the device. Safe to call multiple times.
	Stop() error

	// Done is closed when the stream stops.
	Done() <-chan struct{}
}

// Device performs one asynchronous camera request.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}
