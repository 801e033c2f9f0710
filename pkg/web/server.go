// Package web exposes the voice session over HTTP: a small control API
// and a WebSocket feed of session snapshots.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceloop/pkg/history"
	"github.com/teslashibe/go-voiceloop/pkg/hub"
	"github.com/teslashibe/go-voiceloop/pkg/session"
)

// Controller is the session surface the server drives.
// *session.Orchestrator satisfies it.
type Controller interface {
	Snapshot() session.Snapshot
	Metrics() session.Metrics
	OnChange(fn func(session.Snapshot))
	Initialize(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset() error
	NewChat() error
}

var _ Controller = (*session.Orchestrator)(nil)

// Server serves the control API and the status feed.
type Server struct {
	app    *fiber.App
	ctrl   Controller
	reader history.Reader
	status *hub.Hub
	logger *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	hubOnce sync.Once
	turns   sync.WaitGroup
	addr    string
}

// NewServer builds the fiber app. reader may be nil, in which case the
// history endpoint answers 501.
func NewServer(ctrl Controller, reader history.Reader, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctrl:   ctrl,
		reader: reader,
		status: hub.New("status", logger),
		logger: logger.With("component", "web.server"),
		ctx:    ctx,
		cancel: cancel,
		addr:   addr,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voiceloop",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/session", s.handleSession)
	api.Post("/initialize", s.handleInitialize)
	api.Post("/start", s.handleStart)
	api.Post("/stop", s.handleStop)
	api.Post("/reset", s.handleReset)
	api.Post("/new-chat", s.handleNewChat)
	api.Get("/history", s.handleHistory)
	api.Get("/metrics", s.handleMetrics)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	ctrl.OnChange(func(snap session.Snapshot) {
		if err := s.status.BroadcastEvent("snapshot", snap); err != nil {
			s.logger.Warn("encode snapshot", "error", err)
		}
	})

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) runHub() {
	s.hubOnce.Do(func() {
		go s.status.Run(s.ctx)
		if err := s.status.BroadcastEvent("snapshot", s.ctrl.Snapshot()); err != nil {
			s.logger.Warn("encode snapshot", "error", err)
		}
	})
}

// Start listens on the configured address and blocks.
func (s *Server) Start() error {
	s.runHub()
	s.logger.Info("web control listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync runs Start in a goroutine and logs a failure.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Serve serves on an existing listener and blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.runHub()
	return s.app.Listener(ln)
}

// Shutdown stops the listener, the status hub and waits for turns that
// were stopped through the API to finish.
func (s *Server) Shutdown() error {
	s.cancel()
	err := s.app.Shutdown()
	s.turns.Wait()
	return err
}

// handleError maps session errors onto status codes.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	var stage *session.StageError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrNotInitialized):
		code = fiber.StatusConflict
	case errors.Is(err, session.ErrAborted):
		code = fiber.StatusConflict
	case errors.As(err, &stage):
		code = fiber.StatusBadGateway
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
