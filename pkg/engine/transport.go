package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-voiceloop/pkg/protocol"
)

// Transport moves protocol messages to and from one engine.
type Transport interface {
	// Send delivers msg to the peer.
	Send(ctx context.Context, msg *protocol.Message) error

	// Recv blocks until a message arrives. Frames that cannot be decoded
	// are reported as ErrMalformed; a closed link reports ErrClosed.
	Recv(ctx context.Context) (*protocol.Message, error)

	// Close releases the link. Safe to call more than once.
	Close() error
}

// Pipe returns the two ends of an in-process link. Messages are encoded
// on send and decoded on receive, so the two sides never share memory.
func Pipe() (Transport, Transport) {
	a := make(chan []byte, 8)
	b := make(chan []byte, 8)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: a, out: b, done: done, once: once},
		&pipeEnd{in: b, out: a, done: done, once: once}
}

type pipeEnd struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (p *pipeEnd) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("engine: encode %s: %w", msg.Kind, err)
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Recv(ctx context.Context) (*protocol.Message, error) {
	select {
	case data := <-p.in:
		return decode(data)
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func decode(data []byte) (*protocol.Message, error) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return msg, nil
}
