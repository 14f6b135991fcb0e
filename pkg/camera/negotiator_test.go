package camera

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-cuecam/internal/log"
)

func newTestNegotiator(d Device, opts ...Option) *Negotiator {
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	return NewNegotiator(d, opts...)
}

func TestAcquireTierOrder(t *testing.T) {
	tests := []struct {
		name      string
		reject    []FacingMode
		wantTier  Tier
		wantCalls []FacingMode
	}{
		{
			name:      "strict accepted",
			wantTier:  TierStrict,
			wantCalls: []FacingMode{FacingExact},
		},
		{
			name:      "strict rejected",
			reject:    []FacingMode{FacingExact},
			wantTier:  TierLoose,
			wantCalls: []FacingMode{FacingExact, FacingPreferred},
		},
		{
			name:      "only default accepted",
			reject:    []FacingMode{FacingExact, FacingPreferred},
			wantTier:  TierDefault,
			wantCalls: []FacingMode{FacingExact, FacingPreferred, FacingAbsent},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := RejectModes(tc.reject...)
			n := newTestNegotiator(dev)

			stream, err := n.Acquire(context.Background(), FacingUser)
			if err != nil {
				t.Fatalf("Acquire: %v", err)
			}
			if stream == nil {
				t.Fatal("expected a stream")
			}

			_, tier, ok := n.Active()
			if !ok || tier != tc.wantTier {
				t.Errorf("active tier = %v (ok=%v), want %v", tier, ok, tc.wantTier)
			}

			calls := dev.Calls()
			if len(calls) != len(tc.wantCalls) {
				t.Fatalf("got %d requests, want %d", len(calls), len(tc.wantCalls))
			}
			for i, c := range calls {
				if c.Mode != tc.wantCalls[i] {
					t.Errorf("request %d mode = %v, want %v", i, c.Mode, tc.wantCalls[i])
				}
				if c.Mode != FacingAbsent && c.Facing != FacingUser {
					t.Errorf("request %d facing = %v, want user", i, c.Facing)
				}
			}
		})
	}
}

func TestAcquireAllTiersRejected(t *testing.T) {
	dev := RejectModes(FacingExact, FacingPreferred, FacingAbsent)
	n := newTestNegotiator(dev)

	stream, err := n.Acquire(context.Background(), FacingEnvironment)
	if stream != nil {
		t.Error("no stream should be returned")
	}
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("expected ErrCameraUnavailable, got %v", err)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	if len(exhausted.Errors) != 3 {
		t.Errorf("expected 3 tier errors, got %d", len(exhausted.Errors))
	}
	if !errors.Is(err, ErrConstraintUnsatisfied) {
		t.Error("tier causes should be reachable through errors.Is")
	}

	if _, _, ok := n.Active(); ok {
		t.Error("no stream should be assigned")
	}
	if got := len(dev.Calls()); got != 3 {
		t.Errorf("expected exactly 3 requests, got %d", got)
	}
}

func TestAcquireReleasesPreviousStream(t *testing.T) {
	dev := NewMockDevice()
	n := newTestNegotiator(dev)
	ctx := context.Background()

	first, err := n.Acquire(ctx, FacingEnvironment)
	if err != nil {
		t.Fatal(err)
	}

	second, err := n.Toggle(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if !IsStopped(first) {
		t.Error("first stream should be stopped after toggle")
	}
	if IsStopped(second) {
		t.Error("second stream should be live")
	}
	if n.Facing() != FacingUser {
		t.Errorf("facing = %v, want user", n.Facing())
	}

	calls := dev.Calls()
	if last := calls[len(calls)-1]; last.Facing != FacingUser {
		t.Errorf("toggle requested facing %v, want user", last.Facing)
	}
}

func TestAcquireLastCompletedWins(t *testing.T) {
	dev := NewMockDevice()
	gate := make(chan struct{})
	var once sync.Once
	dev.OpenFunc = func(ctx context.Context, c Constraints) (Stream, error) {
		// The first request blocks until the second has completed.
		if c.Facing == FacingEnvironment {
			<-gate
		}
		return dev.newStream(), nil
	}

	n := newTestNegotiator(dev)
	ctx := context.Background()

	slowDone := make(chan Stream)
	go func() {
		s, _ := n.Acquire(ctx, FacingEnvironment)
		slowDone <- s
	}()

	// Wait for the slow request to be in flight.
	deadline := time.Now().Add(time.Second)
	for len(dev.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	fast, err := n.Acquire(ctx, FacingUser)
	if err != nil {
		t.Fatal(err)
	}
	once.Do(func() { close(gate) })
	slow := <-slowDone

	active, _, _ := n.Active()
	if active != slow {
		t.Error("the last acquisition to complete should own the active stream")
	}
	if !IsStopped(fast) {
		t.Error("the replaced stream should be released")
	}
	if got := n.Facing(); got != FacingEnvironment {
		t.Errorf("facing = %s, want the kept stream's environment", got)
	}
}

func TestReleaseDuringAcquisition(t *testing.T) {
	dev := NewMockDevice()
	gate := make(chan struct{})
	dev.OpenFunc = func(ctx context.Context, c Constraints) (Stream, error) {
		<-gate
		return dev.newStream(), nil
	}
	n := newTestNegotiator(dev)

	result := make(chan error, 1)
	go func() {
		_, err := n.Acquire(context.Background(), FacingUser)
		result <- err
	}()

	deadline := time.Now().Add(time.Second)
	for len(dev.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := n.Release(); err != nil {
		t.Fatal(err)
	}
	close(gate)

	if err := <-result; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if _, _, ok := n.Active(); ok {
		t.Error("released negotiator must not hold a stream")
	}
	for _, s := range dev.Streams() {
		if !IsStopped(s) {
			t.Error("late stream was leaked")
		}
	}
}

func TestAcquireCancelled(t *testing.T) {
	dev := RejectModes(FacingExact)
	n := newTestNegotiator(dev)

	ctx, cancel := context.WithCancel(context.Background())
	dev.OpenFunc = func(ctx context.Context, c Constraints) (Stream, error) {
		cancel()
		return nil, ErrConstraintUnsatisfied
	}

	if _, err := n.Acquire(ctx, FacingUser); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(dev.Calls()); got != 1 {
		t.Errorf("no tier should be tried after cancellation, got %d requests", got)
	}
}

func TestTierConstraints(t *testing.T) {
	if c := TierStrict.Constraints(FacingUser); c.Mode != FacingExact || c.Facing != FacingUser {
		t.Errorf("strict = %+v", c)
	}
	if c := TierLoose.Constraints(FacingEnvironment); c.Mode != FacingPreferred || c.Facing != FacingEnvironment {
		t.Errorf("loose = %+v", c)
	}
	if c := TierDefault.Constraints(FacingUser); c.Mode != FacingAbsent {
		t.Errorf("default = %+v", c)
	}
}

func TestParseFacing(t *testing.T) {
	if f, err := ParseFacing("user"); err != nil || f != FacingUser {
		t.Errorf("ParseFacing(user) = %v, %v", f, err)
	}
	if _, err := ParseFacing("sideways"); err == nil {
		t.Error("expected error")
	}
	if FacingUser.Opposite() != FacingEnvironment || FacingEnvironment.Opposite() != FacingUser {
		t.Error("Opposite is not symmetric")
	}
}
