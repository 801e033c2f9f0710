package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceloop/pkg/hub"
	"github.com/teslashibe/go-voiceloop/pkg/session"
)

const defaultHistoryLimit = 20

func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.ctrl.Snapshot()
	return c.JSON(fiber.Map{
		"status":      "ok",
		"initialized": snap.Initialized,
		"state":       snap.State,
	})
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleInitialize(c *fiber.Ctx) error {
	if err := s.ctrl.Initialize(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.ctrl.Start(s.ctx); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Snapshot())
}

// handleStop runs the turn in the background; progress arrives over
// /ws/status.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if st := s.ctrl.Snapshot().State; st != session.StateRecording {
		return fiber.NewError(fiber.StatusConflict, "stop: not recording (state "+string(st)+")")
	}
	s.turns.Add(1)
	go func() {
		defer s.turns.Done()
		err := s.ctrl.Stop(s.ctx)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrInvalidState):
			s.logger.Info("stop request dropped, another request moved the session first", "error", err)
		default:
			s.logger.Debug("turn ended with error", "error", err)
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "processing"})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.ctrl.Reset(); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleNewChat(c *fiber.Ctx) error {
	if err := s.ctrl.NewChat(); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.reader == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "history is not readable with this backend")
	}
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}
	records, err := s.reader.Recent(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Metrics())
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.status, c)
	if client == nil {
		return
	}
	client.Run()
}
