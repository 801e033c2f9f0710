package audioio

import (
	"context"
	"io"
)

// Sink is a playback device. Write may block while the device drains;
// Flush waits for queued audio and Clear drops it.
type Sink interface {
	Start(ctx context.Context) error
	Stop() error
	Write(ctx context.Context, chunk AudioChunk) error
	Flush(ctx context.Context) error
	Clear() error
	Config() Config
	Name() string
	io.Closer
}
