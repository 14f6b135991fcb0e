package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/cue"
	"github.com/teslashibe/go-cuecam/pkg/hub"
)

// RotationResponse is returned by GET /api/rotation/:label.
type RotationResponse struct {
	Label   string `json:"label"`
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Session string `json:"session"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, camera.ErrCameraUnavailable):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, camera.ErrSuperseded):
		code = fiber.StatusConflict
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.rec.Snapshot())
}

func (s *Server) handleCameraStart(c *fiber.Ctx) error {
	err := s.rec.Start(c.UserContext())
	return s.cameraResult(c, "start", err)
}

func (s *Server) handleCameraToggle(c *fiber.Ctx) error {
	err := s.rec.ToggleCamera(c.UserContext())
	return s.cameraResult(c, "toggle", err)
}

func (s *Server) handleCameraStop(c *fiber.Ctx) error {
	err := s.rec.Stop()
	return s.cameraResult(c, "stop", err)
}

// cameraResult publishes the new camera status and replies with it.
func (s *Server) cameraResult(c *fiber.Ctx, action string, err error) error {
	st := s.rec.Snapshot()
	s.events.Publish(hub.EventCamera, fiber.Map{"action": action, "status": st})
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) handleGetRotation(c *fiber.Ctx) error {
	label := strings.TrimSpace(c.Params("label"))
	if err := cue.ValidLabel(label); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(RotationResponse{
		Label:   label,
		Index:   s.rotation.Get(label),
		Key:     cue.RotationKey(label),
		Session: s.store.ID(),
	})
}

func (s *Server) handleSessionReset(c *fiber.Ctx) error {
	if err := s.store.Reset(); err != nil {
		return err
	}
	id := s.store.ID()
	s.logger.Info("session reset", "session", id)
	s.events.Publish(hub.EventSession, fiber.Map{"session": id})
	return c.JSON(fiber.Map{"session": id})
}

// handleEventsWS sends the current status, then every published event.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hello, err := hub.Encode(hub.EventStatus, s.rec.Snapshot())
	if err != nil {
		s.logger.Error("encoding status failed", "error", err)
		return
	}
	hub.NewClient(s.events, c, hello).Run()
}
