package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/protocol"
)

// Channel is a single-flight request/response link to one engine.
// Replies are matched to requests by correlation id; a reply that does
// not match the in-flight request is logged and dropped.
type Channel struct {
	name      Name
	transport Transport
	config    *Config
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	pending *call

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type call struct {
	id    string
	reply chan *protocol.Message
}

// NewChannel starts reading from t and returns an uninitialized channel.
func NewChannel(name Name, t Transport, opts ...Option) *Channel {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		name:      name,
		transport: t,
		config:    cfg,
		logger:    cfg.Logger.With("component", "engine.channel", "engine", string(name)),
		state:     StateUninitialized,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go c.readLoop(ctx)
	return c
}

// Name returns the engine kind this channel talks to.
func (c *Channel) Name() Name {
	return c.name
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialize asks the engine to load and waits for its ready or error reply.
// It is a no-op on a ready channel and may be retried after a failure.
func (c *Channel) Initialize(ctx context.Context) error {
	switch c.State() {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	}

	msg, err := protocol.NewInitializeMessage()
	if err != nil {
		return err
	}

	start := time.Now()
	reply, err := c.roundTrip(ctx, msg, c.config.InitTimeout)
	if err != nil {
		c.setState(StateFailed)
		return err
	}

	switch reply.Kind {
	case c.name.ReadyKind():
		c.setState(StateReady)
		c.logger.Info("engine ready", "init_ms", time.Since(start).Milliseconds())
		return nil
	case c.name.ErrorKind():
		c.setState(StateFailed)
		return c.remoteError(reply)
	default:
		c.setState(StateFailed)
		return fmt.Errorf("%w: %s during initialize", ErrUnexpectedReply, reply.Kind)
	}
}

// Call sends a request and blocks for its correlated result.
// Engine-reported errors are returned as *RemoteError.
func (c *Channel) Call(ctx context.Context, req *protocol.Message) (*protocol.Message, error) {
	if st := c.State(); st != StateReady {
		if st == StateClosed {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: %s engine is %s", ErrNotReady, c.name, st)
	}

	reply, err := c.roundTrip(ctx, req, c.config.RequestTimeout)
	if err != nil {
		return nil, err
	}

	switch reply.Kind {
	case protocol.ResultKind(req.Kind):
		return reply, nil
	case c.name.ErrorKind():
		return nil, c.remoteError(reply)
	default:
		return nil, fmt.Errorf("%w: %s for %s", ErrUnexpectedReply, reply.Kind, req.Kind)
	}
}

// Close notifies the engine, tears down the transport, and waits for the
// reader to exit. Safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		wasLive := c.state != StateClosed
		c.state = StateClosed
		c.mu.Unlock()

		if wasLive {
			if stop, e := protocol.NewStopMessage(); e == nil {
				ctx, cancel := context.WithTimeout(context.Background(), c.config.StopTimeout)
				if e := c.transport.Send(ctx, stop); e != nil {
					c.logger.Debug("stop not delivered", "error", e)
				}
				cancel()
			}
		}

		c.cancel()
		err = c.transport.Close()
		<-c.done
	})
	return err
}

// roundTrip claims the single in-flight slot, sends msg and waits for the
// reply carrying the same id.
func (c *Channel) roundTrip(ctx context.Context, msg *protocol.Message, timeout time.Duration) (*protocol.Message, error) {
	pc := &call{id: msg.ID, reply: make(chan *protocol.Message, 1)}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.pending != nil {
		c.mu.Unlock()
		return nil, ErrConcurrentRequest
	}
	c.pending = pc
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == pc {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.transport.Send(ctx, msg); err != nil {
		return nil, c.contextError(ctx, msg, err)
	}

	select {
	case reply := <-pc.reply:
		return reply, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, c.contextError(ctx, msg, ctx.Err())
	}
}

func (c *Channel) contextError(ctx context.Context, msg *protocol.Message, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("engine request timed out", "kind", msg.Kind, "id", msg.ID)
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, c.name, msg.Kind, context.DeadlineExceeded)
	}
	return err
}

func (c *Channel) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.transport.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				c.logger.Warn("rejected engine message", "error", err)
				continue
			}
			c.mu.Lock()
			if c.state != StateClosed {
				c.state = StateFailed
				c.logger.Error("engine link lost", "error", err)
			}
			c.mu.Unlock()
			return
		}
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg *protocol.Message) {
	if !c.name.Accepts(msg.Kind) {
		c.logger.Warn("rejected message kind for engine", "kind", msg.Kind, "id", msg.ID)
		return
	}

	c.mu.Lock()
	pc := c.pending
	c.mu.Unlock()

	if pc == nil || pc.id != msg.ID {
		c.logger.Warn("discarding uncorrelated reply", "kind", msg.Kind, "id", msg.ID)
		return
	}
	select {
	case pc.reply <- msg:
	default:
		c.logger.Warn("discarding duplicate reply", "kind", msg.Kind, "id", msg.ID)
	}
}

func (c *Channel) remoteError(reply *protocol.Message) error {
	data, err := reply.GetErrorData()
	if err != nil || data.Error == "" {
		return &RemoteError{Engine: c.name, Message: "unspecified engine error"}
	}
	return &RemoteError{Engine: c.name, Message: data.Error}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}
