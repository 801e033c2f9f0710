package audioio

import (
	"context"
	"io"
	"time"
)

// AudioChunk is interleaved PCM16 at SampleRate with Channels channels.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes encodes the samples as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte { return PCM16Bytes(c.Samples) }

// FromBytes replaces the chunk with decoded little-endian PCM16.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	*c = AudioChunk{Samples: BytesToPCM16(data), SampleRate: sampleRate, Channels: channels}
}

// Duration is the playing time in seconds, zero for an unset format.
func (c *AudioChunk) Duration() float64 {
	frames := c.SampleRate * c.Channels
	if frames == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(frames)
}

// Elapsed is Duration as a time.Duration.
func (c *AudioChunk) Elapsed() time.Duration {
	return time.Duration(c.Duration() * float64(time.Second))
}

// Source is a capture device. Read yields io.EOF after Stop once the
// buffered chunks are drained; a stopped source may be started again
// until it is closed.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Read(ctx context.Context) (AudioChunk, error)
	Config() Config
	Name() string
	io.Closer
}
