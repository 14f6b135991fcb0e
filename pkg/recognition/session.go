package recognition

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/classify"
)

// CameraState describes the camera as seen by a Session.
type CameraState string

const (
	CameraIdle        CameraState = "idle"
	CameraStarting    CameraState = "starting"
	CameraLive        CameraState = "live"
	CameraUnavailable CameraState = "unavailable"
)

// Cue plays the audio for an announced label.
type Cue interface {
	// Trigger starts the cue unless one is already playing.
	Trigger(label string) bool
	// Busy reports whether a cue is playing.
	Busy() bool
}

// Status is a point-in-time view of a Session.
type Status struct {
	Camera        CameraState          `json:"camera"`
	Facing        string               `json:"facing"`
	Tier          string               `json:"tier,omitempty"`
	Running       bool                 `json:"running"`
	LoopError     string               `json:"loop_error,omitempty"`
	CameraError   string               `json:"camera_error,omitempty"`
	Predictions   classify.Predictions `json:"predictions,omitempty"`
	LastAnnounced string               `json:"last_announced,omitempty"`
	AudioBusy     bool                 `json:"audio_busy"`
	Policy        Policy               `json:"policy"`
}

// Session wires the camera, the recognition loop, the gate and the cue
// player together for one recognition view.
type Session struct {
	neg    *camera.Negotiator
	driver *Driver
	gate   *Gate
	cue    Cue
	logger *slog.Logger

	onAnnounce func(Announcement)

	// ctl orders attach against Stop.
	ctl sync.Mutex

	mu        sync.Mutex
	state     CameraState
	cameraErr error
	lastPreds classify.Predictions
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// OnAnnouncement registers a callback for every announcement. It runs on
// the loop goroutine and must not block.
func OnAnnouncement(fn func(Announcement)) SessionOption {
	return func(s *Session) { s.onAnnounce = fn }
}

// NewSession creates an idle session.
func NewSession(neg *camera.Negotiator, clf classify.Classifier, cue Cue, policy Policy, opts ...SessionOption) *Session {
	s := &Session{
		neg:    neg,
		cue:    cue,
		state:  CameraIdle,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = NewGate(policy, cue.Busy)
	s.driver = NewDriver(clf, s.handle, s.logger)
	s.logger = s.logger.With("component", "recognition.session")
	return s
}

// Start acquires the camera with the current facing preference and starts
// recognition. When every tier is rejected the camera is reported
// unavailable and no loop runs.
func (s *Session) Start(ctx context.Context) error {
	s.setState(CameraStarting, nil)
	stream, err := s.neg.Reacquire(ctx)
	return s.attach(stream, err)
}

// ToggleCamera flips the facing preference, switches cameras and restarts
// recognition on the new stream.
func (s *Session) ToggleCamera(ctx context.Context) error {
	s.setState(CameraStarting, nil)
	stream, err := s.neg.Toggle(ctx)
	return s.attach(stream, err)
}

// attach runs recognition on the stream an acquisition returned. Streams
// the negotiator no longer holds are ignored: a later acquisition or a Stop
// owns the camera state.
func (s *Session) attach(stream camera.Stream, err error) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if err != nil {
		if errors.Is(err, camera.ErrSuperseded) {
			return err
		}
		if _, _, ok := s.neg.Active(); ok {
			return err
		}
		s.driver.Stop()
		if errors.Is(err, camera.ErrCameraUnavailable) {
			s.setState(CameraUnavailable, err)
		} else {
			s.setState(CameraIdle, err)
		}
		return err
	}

	if active, _, ok := s.neg.Active(); !ok || active != stream {
		s.logger.Debug("stream replaced before recognition started")
		return camera.ErrSuperseded
	}
	s.driver.Restart(stream)
	s.setState(CameraLive, nil)
	return nil
}

// Stop ends recognition, releases the camera and forgets the last
// announced label.
func (s *Session) Stop() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.driver.Stop()
	err := s.neg.Release()
	s.gate.Reset()

	s.mu.Lock()
	s.state = CameraIdle
	s.cameraErr = nil
	s.lastPreds = nil
	s.mu.Unlock()

	s.logger.Info("recognition stopped")
	return err
}

// SetPolicy updates the gate policy.
func (s *Session) SetPolicy(p Policy) {
	s.gate.SetPolicy(p)
	s.logger.Info("gate policy updated", "threshold", p.Threshold, "reset_on_low_confidence", p.ResetOnLowConfidence)
}

// Snapshot returns the current status.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	st := Status{
		Camera:      s.state,
		Predictions: s.lastPreds,
	}
	if s.cameraErr != nil {
		st.CameraError = s.cameraErr.Error()
	}
	s.mu.Unlock()

	st.Facing = s.neg.Facing().String()
	if _, tier, ok := s.neg.Active(); ok {
		st.Tier = tier.String()
	}
	st.Running = s.driver.Running()
	if err := s.driver.Err(); err != nil {
		st.LoopError = err.Error()
	}
	st.LastAnnounced = s.gate.Last()
	st.AudioBusy = s.cue.Busy()
	st.Policy = s.gate.Policy()
	return st
}

func (s *Session) handle(preds classify.Predictions) {
	s.mu.Lock()
	s.lastPreds = append(classify.Predictions(nil), preds.Head(3)...)
	s.mu.Unlock()

	ann, ok := s.gate.Evaluate(preds)
	if !ok {
		return
	}

	ann.Cue = s.cue.Trigger(ann.Label)
	s.logger.Info("class recognized", "label", ann.Label, "confidence", ann.Confidence, "cue", ann.Cue)

	if s.onAnnounce != nil {
		s.onAnnounce(ann)
	}
}

func (s *Session) setState(state CameraState, err error) {
	s.mu.Lock()
	s.state = state
	s.cameraErr = err
	s.mu.Unlock()
}
