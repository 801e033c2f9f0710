package codec

import (
	"github.com/teslashibe/go-voiceloop/pkg/audioio"
)

// PCMMediaType is raw little-endian 16-bit mono.
const PCMMediaType = "audio/pcm"

func init() {
	Register(PCMMediaType, func(rate int) (Codec, error) {
		return NewPCM(rate), nil
	})
}

// PCM is an uncompressed codec, used when no compressed codec is built in.
type PCM struct {
	rate int
}

// NewPCM returns a PCM codec at rate Hz with 20ms frames.
func NewPCM(rate int) *PCM {
	return &PCM{rate: rate}
}

func (p *PCM) MediaType() string { return PCMMediaType }
func (p *PCM) SampleRate() int   { return p.rate }
func (p *PCM) FrameSize() int    { return p.rate / 50 }

func (p *PCM) EncodeFrame(pcm []int16) ([]byte, error) {
	return audioio.PCM16Bytes(pcm), nil
}

func (p *PCM) DecodeFrame(data []byte) ([]int16, error) {
	return audioio.BytesToPCM16(data), nil
}

var _ Codec = (*PCM)(nil)
