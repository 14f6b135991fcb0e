// Package app assembles the cuecam pipeline from configuration and owns
// its lifecycle. Hardware-backed components (the capture device and the
// classifier) are supplied by the caller, so the package builds without
// OpenCV.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-cuecam/internal/config"
	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/classify"
	"github.com/teslashibe/go-cuecam/pkg/cue"
	"github.com/teslashibe/go-cuecam/pkg/hub"
	"github.com/teslashibe/go-cuecam/pkg/recognition"
	"github.com/teslashibe/go-cuecam/pkg/session"
	"github.com/teslashibe/go-cuecam/pkg/web"
)

// App wires camera, classifier, cue player, session store and web server.
type App struct {
	cfg     config.Config
	cfgPath string
	logger  *slog.Logger

	device     camera.Device
	classifier classify.Classifier
	player     cue.Player
	store      session.Store

	negotiator *camera.Negotiator
	arbitrator *cue.Arbitrator
	rotation   *cue.Rotation
	session    *recognition.Session
	events     *hub.Hub
	server     *web.Server

	closers []func() error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option supplies or overrides a component built by Init.
type Option func(*App)

// WithDevice sets the capture device. Required.
func WithDevice(d camera.Device) Option {
	return func(a *App) { a.device = d }
}

// WithClassifier sets the frame classifier. Required. A classifier that
// implements io.Closer is closed on Shutdown.
func WithClassifier(c classify.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithPlayer uses p instead of the external player command.
func WithPlayer(p cue.Player) Option {
	return func(a *App) { a.player = p }
}

// WithStore uses s instead of opening the badger session store.
func WithStore(s session.Store) Option {
	return func(a *App) { a.store = s }
}

// WithConfigPath enables hot reload of the recognition policy from path.
func WithConfigPath(path string) Option {
	return func(a *App) { a.cfgPath = path }
}

// New validates cfg and creates an uninitialized App.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	if c, ok := a.classifier.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	return a, nil
}

// Init builds every component. Call it once before Run.
func (a *App) Init() error {
	if err := a.initCamera(); err != nil {
		return fmt.Errorf("camera init: %w", err)
	}
	if err := a.initClassifier(); err != nil {
		return fmt.Errorf("classifier init: %w", err)
	}
	if err := a.initStore(); err != nil {
		return fmt.Errorf("session init: %w", err)
	}

	if a.player == nil {
		a.player = cue.NewExecPlayer(a.cfg.Audio.Command, a.logger)
	}

	a.events = hub.New("events", a.logger)
	a.rotation = cue.NewRotation(a.store, a.logger)
	a.arbitrator = cue.NewArbitrator(a.player, a.rotation, a.cfg.Audio.MediaDir, a.cfg.Audio.Extension,
		cue.WithLogger(a.logger),
		cue.WithOutcome(func(o cue.Outcome) {
			a.events.Publish(hub.EventCue, o)
		}),
	)
	a.closers = append(a.closers, a.arbitrator.Close)

	a.session = recognition.NewSession(a.negotiator, a.classifier, a.arbitrator, a.policy(a.cfg),
		recognition.WithLogger(a.logger),
		recognition.OnAnnouncement(func(ann recognition.Announcement) {
			a.events.Publish(hub.EventAnnouncement, ann)
		}),
	)

	a.server = web.NewServer(a.session, a.rotation, a.store, a.events, web.Options{
		Addr:      a.cfg.Web.Addr,
		MediaDir:  a.cfg.Audio.MediaDir,
		StaticDir: a.cfg.Web.StaticDir,
		Logger:    a.logger,
	})

	a.logger.Info("initialized",
		"session", a.store.ID(),
		"media_dir", a.cfg.Audio.MediaDir,
		"threshold", a.cfg.Recognition.Threshold,
	)
	return nil
}

func (a *App) initCamera() error {
	if a.device == nil {
		return errors.New("no capture device")
	}
	facing, err := camera.ParseFacing(a.cfg.Camera.Facing)
	if err != nil {
		return err
	}
	a.negotiator = camera.NewNegotiator(a.device,
		camera.WithLogger(a.logger),
		camera.WithFacing(facing),
	)
	return nil
}

func (a *App) initClassifier() error {
	if a.classifier == nil {
		return errors.New("no classifier")
	}
	return nil
}

func (a *App) initStore() error {
	if a.store == nil {
		s, err := session.OpenBadger(session.BadgerOptions{
			Dir:      a.cfg.Session.Dir,
			InMemory: a.cfg.Session.InMemory,
			TTL:      a.cfg.Session.TTL,
			Logger:   a.logger,
		})
		if err != nil {
			return err
		}
		a.store = s
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

func (a *App) policy(cfg config.Config) recognition.Policy {
	return recognition.Policy{
		Threshold:            cfg.Recognition.Threshold,
		ResetOnLowConfidence: cfg.Recognition.ResetOnLowConfidence,
	}
}

// Session returns the recognition session.
func (a *App) Session() *recognition.Session {
	return a.session
}

// Events returns the event hub.
func (a *App) Events() *hub.Hub {
	return a.events
}

// Server returns the web server.
func (a *App) Server() *web.Server {
	return a.server
}

// Run starts recognition and serves the web API until ctx is cancelled.
// A missing camera is reported but does not stop the server; it can be
// retried through the API.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.events.Run(ctx)
	}()

	if a.cfgPath != "" {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := config.Watch(ctx, a.cfgPath, a.logger, func(cfg config.Config) {
				a.session.SetPolicy(a.policy(cfg))
			})
			if err != nil {
				a.logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	if err := a.session.Start(ctx); err != nil {
		a.logger.Error("recognition not started", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if a.cfg.Web.CertFile != "" {
			errCh <- a.server.StartTLS(a.cfg.Web.CertFile, a.cfg.Web.KeyFile)
			return
		}
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	}
}

// Shutdown stops recognition and releases every component.
func (a *App) Shutdown() error {
	var errs []error

	if a.cancel != nil {
		a.cancel()
	}
	if a.session != nil {
		if err := a.session.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.wg.Wait()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
