package cue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// step is one position in the fallback chain.
type step int

const (
	stepIndexed    step = iota // {label}{index}
	stepResetRetry             // {label}1 after a missing higher index
	stepPlain                  // {label}
	stepExhausted
)

func (s step) String() string {
	switch s {
	case stepIndexed:
		return "indexed"
	case stepResetRetry:
		return "reset_retry"
	case stepPlain:
		return "plain"
	default:
		return "exhausted"
	}
}

// Outcome describes how one trigger ended.
type Outcome struct {
	Label string `json:"label"`

	// Path is the file that played, empty if none did.
	Path string `json:"path,omitempty"`

	// Index is the last index attempted. The plain file counts as 1.
	Index int `json:"index"`

	// NextIndex is the rotation index stored for the next trigger,
	// 0 when rotation was left unchanged.
	NextIndex int `json:"next_index,omitempty"`

	Exhausted bool          `json:"exhausted,omitempty"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Arbitrator plays at most one cue at a time across all labels.
type Arbitrator struct {
	player   Player
	rotation *Rotation
	dir      string
	ext      string
	logger   *slog.Logger

	onOutcome func(Outcome)

	busy atomic.Bool
	wg   sync.WaitGroup

	// mu orders wg.Add in Trigger against Close.
	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// ArbitratorOption configures an Arbitrator.
type ArbitratorOption func(*Arbitrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ArbitratorOption {
	return func(a *Arbitrator) { a.logger = l.With("component", "cue.arbitrator") }
}

// WithOutcome registers a callback invoked after every accepted trigger,
// once the lock has been released.
func WithOutcome(fn func(Outcome)) ArbitratorOption {
	return func(a *Arbitrator) { a.onOutcome = fn }
}

// NewArbitrator creates an arbitrator resolving media as dir/{label}{n}ext.
func NewArbitrator(player Player, rotation *Rotation, dir, ext string, opts ...ArbitratorOption) *Arbitrator {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Arbitrator{
		player:   player,
		rotation: rotation,
		dir:      dir,
		ext:      ext,
		logger:   slog.Default().With("component", "cue.arbitrator"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Trigger starts the cue for label in the background. It returns false
// without side effects when another cue holds the lock or the arbitrator
// is closed. Dropped triggers are not queued. Labels rejected by
// ValidLabel are never played.
func (a *Arbitrator) Trigger(label string) bool {
	if err := ValidLabel(label); err != nil {
		a.logger.Warn("cue dropped", "error", err)
		return false
	}
	if !a.busy.CompareAndSwap(false, true) {
		a.logger.Debug("cue dropped, lock held", "label", label)
		return false
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.busy.Store(false)
		return false
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go a.run(label)
	return true
}

// Busy reports whether a cue holds the lock.
func (a *Arbitrator) Busy() bool {
	return a.busy.Load()
}

// Wait blocks until every accepted trigger has finished.
func (a *Arbitrator) Wait() {
	a.wg.Wait()
}

// Close stops any playing cue and waits for it to finish.
// Later triggers are dropped.
func (a *Arbitrator) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	return nil
}

func (a *Arbitrator) run(label string) {
	defer a.wg.Done()

	out := a.play(label)
	a.busy.Store(false)

	if a.onOutcome != nil {
		a.onOutcome(out)
	}
}

// play walks the fallback chain for label. Panics from the player are
// recovered so the lock is always released.
func (a *Arbitrator) play(label string) (out Outcome) {
	start := time.Now()
	out.Label = label

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("cue: player panic: %v", r)
			a.logger.Error("cue playback panicked", "label", label, "panic", r)
		}
		out.Duration = time.Since(start)
	}()

	index := a.rotation.Get(label)
	cur := stepIndexed
	var failures []error

	for cur != stepExhausted {
		attempt := index
		switch cur {
		case stepResetRetry:
			attempt = 1
			if err := a.rotation.Set(label, 1); err != nil {
				a.logger.Warn("persisting rotation reset failed", "label", label, "error", err)
			}
		case stepPlain:
			attempt = 0
		}

		path := MediaPath(a.dir, label, attempt, a.ext)
		out.Index = max(attempt, 1)

		pb, err := a.player.Start(a.ctx, path)
		if err == nil {
			out.Path = path
			a.logger.Debug("cue started", "label", label, "path", path, "step", cur.String())

			stop := context.AfterFunc(a.ctx, func() { pb.Stop() })
			werr := pb.Wait()
			stop()
			if werr != nil {
				if a.ctx.Err() != nil {
					out.Err = a.ctx.Err()
					return out
				}
				out.Err = werr
				a.logger.Warn("cue failed during playback", "label", label, "path", path, "error", werr)
			}
			a.advance(&out)
			return out
		}

		if errors.Is(err, ErrPlaybackRejected) || a.ctx.Err() != nil {
			out.Err = err
			a.logger.Warn("cue playback rejected", "label", label, "path", path, "error", err)
			return out
		}

		failures = append(failures, err)
		a.logger.Debug("cue candidate unavailable, trying next",
			"label", label,
			"path", path,
			"step", cur.String(),
			"error", err,
		)
		cur = next(cur, index)
	}

	out.Exhausted = true
	out.Err = &ChainError{Label: label, Errors: failures}
	a.logger.Error("no playable media for label", "label", label, "error", out.Err)
	a.advance(&out)
	return out
}

// next returns the fallback step after a failed start at cur.
func next(cur step, index int) step {
	switch cur {
	case stepIndexed:
		if index > 1 {
			return stepResetRetry
		}
		return stepPlain
	case stepResetRetry:
		return stepPlain
	default:
		return stepExhausted
	}
}

func (a *Arbitrator) advance(out *Outcome) {
	out.NextIndex = out.Index + 1
	if err := a.rotation.Set(out.Label, out.NextIndex); err != nil {
		a.logger.Warn("persisting rotation failed", "label", out.Label, "error", err)
	}
}

// ChainError is returned when no candidate in the fallback chain could start.
type ChainError struct {
	Label  string
	Errors []error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("all %d media candidates for %q failed", len(e.Errors), e.Label)
}

func (e *ChainError) Unwrap() []error {
	return e.Errors
}
