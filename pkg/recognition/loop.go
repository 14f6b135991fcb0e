package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/classify"
)

// Handler receives every successful classification.
type Handler func(classify.Predictions)

// Loop classifies frames from one stream, one at a time. The next frame
// is submitted as soon as the previous result arrives.
type Loop struct {
	src    camera.Stream
	clf    classify.Classifier
	handle Handler
	logger *slog.Logger
}

// NewLoop creates a loop over src.
func NewLoop(src camera.Stream, clf classify.Classifier, handle Handler, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{src: src, clf: clf, handle: handle, logger: logger}
}

// Run blocks until the stream stops, ctx is cancelled or classification
// fails, and returns the reason. A failed loop is not retried.
func (l *Loop) Run(ctx context.Context) error {
	var n uint64
	for {
		frame, err := l.src.Next(ctx)
		if err != nil {
			l.logger.Debug("recognition loop ended", "iterations", n, "reason", err)
			return err
		}

		preds, err := l.clf.Classify(ctx, frame)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.logger.Error("classification failed, stopping loop", "frame", frame.Seq, "error", err)
			return fmt.Errorf("classify frame %d: %w", frame.Seq, err)
		}

		n++
		if l.handle != nil {
			l.handle(preds)
		}
	}
}

// Driver owns at most one running Loop.
type Driver struct {
	clf    classify.Classifier
	handle Handler
	logger *slog.Logger

	// serializes Restart and Stop
	ctl sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewDriver creates a driver that runs loops with clf and handle.
func NewDriver(clf classify.Classifier, handle Handler, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		clf:    clf,
		handle: handle,
		logger: logger.With("component", "recognition.loop"),
	}
}

// Restart stops the current loop, waits for it, and starts a fresh one
// on src.
func (d *Driver) Restart(src camera.Stream) {
	d.ctl.Lock()
	defer d.ctl.Unlock()

	d.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	loop := NewLoop(src, d.clf, d.handle, d.logger)

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.lastErr = nil
	d.mu.Unlock()

	go func() {
		defer close(done)
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, camera.ErrStreamStopped) {
			err = nil
		}
		d.mu.Lock()
		if d.done == done {
			d.lastErr = err
		}
		d.mu.Unlock()
	}()

	d.logger.Info("recognition loop started")
}

// Stop ends the current loop, if any, and waits for it. Once Stop returns
// no further frame is submitted.
func (d *Driver) Stop() {
	d.ctl.Lock()
	defer d.ctl.Unlock()
	d.stop()
}

func (d *Driver) stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Err returns why the most recent loop failed, nil if it is running or
// was stopped normally.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}
