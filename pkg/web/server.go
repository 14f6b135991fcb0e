// Package web serves the cuecam control API, the media directory and a
// live event feed over HTTPS.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-cuecam/pkg/cue"
	"github.com/teslashibe/go-cuecam/pkg/hub"
	"github.com/teslashibe/go-cuecam/pkg/recognition"
	"github.com/teslashibe/go-cuecam/pkg/session"
)

// Recognizer is the recognition session driven by the API.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	ToggleCamera(ctx context.Context) error
	Snapshot() recognition.Status
}

// Options configures the server.
type Options struct {
	Addr      string
	MediaDir  string
	StaticDir string // optional front-end files served at /
	Logger    *slog.Logger
}

// Server is the cuecam HTTP(S) server.
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger

	rec      Recognizer
	rotation *cue.Rotation
	store    session.Store
	events   *hub.Hub
}

// NewServer builds the fiber app and its routes.
func NewServer(rec Recognizer, rotation *cue.Rotation, store session.Store, events *hub.Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:     opts,
		logger:   opts.Logger.With("component", "web"),
		rec:      rec,
		rotation: rotation,
		store:    store,
		events:   events,
	}

	app := fiber.New(fiber.Config{
		AppName:               "cuecam",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/camera/start", s.handleCameraStart)
	api.Post("/camera/stop", s.handleCameraStop)
	api.Post("/camera/toggle", s.handleCameraToggle)
	api.Get("/rotation/:label", s.handleGetRotation)
	api.Post("/session/reset", s.handleSessionReset)

	if opts.MediaDir != "" {
		app.Static("/media", opts.MediaDir)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves plain HTTP on the configured address. It blocks.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.opts.Addr, "tls", false)
	return s.app.Listen(s.opts.Addr)
}

// StartTLS serves HTTPS with the given certificate. It blocks.
// Browsers only grant camera access to secure origins.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logger.Info("listening", "addr", s.opts.Addr, "tls", true)
	return s.app.ListenTLS(s.opts.Addr, certFile, keyFile)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
