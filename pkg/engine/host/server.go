package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-voiceloop/pkg/engine"
	"github.com/teslashibe/go-voiceloop/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	maxMessage = 32 << 20
)

// Server exposes hosts over WebSocket at /ws/engine/:name, one
// connection per engine link.
type Server struct {
	hosts  map[engine.Name]*Host
	logger *slog.Logger

	active   atomic.Int64
	sessions atomic.Uint64
}

// NewServer serves the given hosts, keyed by their engine name.
func NewServer(logger *slog.Logger, hosts ...*Host) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hosts:  make(map[engine.Name]*Host, len(hosts)),
		logger: logger.With("component", "engine.server"),
	}
	for _, h := range hosts {
		s.hosts[h.Name()] = h
	}
	return s
}

// RegisterRoutes registers the engine endpoints on a Fiber app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/engine", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/engine/:name", func(c *fiber.Ctx) error {
		if _, ok := s.hosts[engine.Name(c.Params("name"))]; !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown engine")
		}
		return c.Next()
	}, websocket.New(s.handle, websocket.Config{ReadBufferSize: 64 << 10, WriteBufferSize: 64 << 10}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(s.Stats())
	})
}

func (s *Server) handle(c *websocket.Conn) {
	name := engine.Name(c.Params("name"))
	h := s.hosts[name]

	active := s.active.Add(1)
	s.sessions.Add(1)
	s.logger.Info("engine link opened", "engine", name, "active", active)
	defer func() {
		s.logger.Info("engine link closed", "engine", name, "active", s.active.Add(-1))
	}()

	if err := h.Serve(context.Background(), newConnTransport(c)); err != nil {
		s.logger.Warn("engine link error", "engine", name, "error", err)
	}
}

// Stats reports link counters.
type Stats struct {
	Engines     []engine.Name `json:"engines"`
	ActiveLinks int64         `json:"active_links"`
	TotalLinks  uint64        `json:"total_links"`
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	names := make([]engine.Name, 0, len(s.hosts))
	for _, n := range []engine.Name{engine.TranscriptionEngine, engine.SynthesisEngine} {
		if _, ok := s.hosts[n]; ok {
			names = append(names, n)
		}
	}
	return Stats{
		Engines:     names,
		ActiveLinks: s.active.Load(),
		TotalLinks:  s.sessions.Load(),
	}
}

// connTransport adapts a Fiber WebSocket connection to engine.Transport.
type connTransport struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConnTransport(conn *websocket.Conn) *connTransport {
	conn.SetReadLimit(maxMessage)
	return &connTransport{conn: conn}
}

func (t *connTransport) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrClosed, err)
	}
	return nil
}

func (t *connTransport) Recv(ctx context.Context) (*protocol.Message, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrClosed, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrMalformed, err)
		}
		return msg, nil
	}
}

func (t *connTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
