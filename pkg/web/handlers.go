package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-pointdex/pkg/camera"
	"github.com/teslashibe/go-pointdex/pkg/frame"
	"github.com/teslashibe/go-pointdex/pkg/hub"
	"github.com/teslashibe/go-pointdex/pkg/loop"
)

// handleStatus returns the controller snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return loopUnavailable(c)
	}
	return c.JSON(ctrl.Status())
}

// handleGetEvents returns recent announcements
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	return c.JSON(s.History())
}

func (s *Server) handleSuspend(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return loopUnavailable(c)
	}
	reason, err := loop.ParseReason(c.Params("reason"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// The hold is ended through /api/resume or the suspension guard.
	ctrl.Suspend(reason)
	s.logger.Info("suspended via api", "reason", reason)

	return c.JSON(ctrl.Status())
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return loopUnavailable(c)
	}
	reason, err := loop.ParseReason(c.Params("reason"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctrl.Resume(reason)
	s.logger.Info("resumed via api", "reason", reason)

	return c.JSON(ctrl.Status())
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return cameraUnavailable(c)
	}
	return c.JSON(s.camera.GetConfigJSON())
}

// handleUpdateCamera applies a partial camera update, e.g.
// {"preset": "portrait"} or {"zoom_level": 2}.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return cameraUnavailable(c)
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

// handleSnapshot returns the square JPEG the classifier would receive
// for the current frame.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	if s.source == nil {
		return cameraUnavailable(c)
	}

	raw, err := s.source.Snapshot()
	if err == nil {
		var img *frame.NormalizedImage
		if img, err = s.normalizer.Normalize(raw); err == nil {
			c.Set(fiber.HeaderContentType, img.Format)
			return c.Send(img.Data)
		}
	}
	if errors.Is(err, frame.ErrSourceNotReady) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func loopUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "loop not attached",
	})
}

func cameraUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "camera not configured",
	})
}

// handleEventsWS streams ready events
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.subscribe(s.eventsHub, c)
}

// handlePredictionsWS streams every classifier result
func (s *Server) handlePredictionsWS(c *websocket.Conn) {
	s.subscribe(s.predictionsHub, c)
}

func (s *Server) subscribe(h *hub.Hub, c *websocket.Conn) {
	client, err := hub.NewClient(h, c)
	if err != nil {
		s.logger.Debug("rejecting websocket client", "hub", h.Name(), "error", err)
		c.Close()
		return
	}
	client.Serve()
}
