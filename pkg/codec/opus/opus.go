// Package opus provides the Opus frame codec. Importing it registers
// "audio/opus" with the codec package.
package opus

import (
	"fmt"
	"sync"

	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-voiceloop/pkg/codec"
)

// MediaType is the base MIME type of Opus frame streams.
const MediaType = "audio/opus"

// maxPacket bounds a single encoded frame.
const maxPacket = 4000

func init() {
	codec.Register(MediaType, func(rate int) (codec.Codec, error) {
		return New(rate)
	})
}

// Codec encodes and decodes mono 20ms Opus frames.
type Codec struct {
	rate int

	mu  sync.Mutex
	enc *opus.Encoder
	dec *opus.Decoder
	out []int16
}

// New builds a mono Opus codec tuned for speech. Opus accepts 8, 12, 16,
// 24 and 48 kHz.
func New(rate int) (*Codec, error) {
	enc, err := opus.NewEncoder(rate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus: encoder: %w", err)
	}
	dec, err := opus.NewDecoder(rate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus: decoder: %w", err)
	}
	return &Codec{
		rate: rate,
		enc:  enc,
		dec:  dec,
		out:  make([]int16, rate*120/1000), // largest Opus frame
	}, nil
}

func (c *Codec) MediaType() string { return MediaType }
func (c *Codec) SampleRate() int   { return c.rate }
func (c *Codec) FrameSize() int    { return c.rate / 50 }

// EncodeFrame encodes exactly FrameSize samples.
func (c *Codec) EncodeFrame(pcm []int16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, maxPacket)
	n, err := c.enc.Encode(pcm, buf)
	if err != nil {
		return nil, fmt.Errorf("opus: encode: %w", err)
	}
	return buf[:n], nil
}

// DecodeFrame decodes one packet.
func (c *Codec) DecodeFrame(data []byte) ([]int16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.dec.Decode(data, c.out)
	if err != nil {
		return nil, fmt.Errorf("opus: decode: %w", err)
	}
	out := make([]int16, n)
	copy(out, c.out[:n])
	return out, nil
}

var _ codec.Codec = (*Codec)(nil)
