package opus

import (
	"math"
	"testing"

	"github.com/teslashibe/go-voiceloop/pkg/codec"
)

func TestRegistered(t *testing.T) {
	c, err := codec.ForMIME("audio/opus;framing=u16be;rate=16000")
	if err != nil {
		t.Fatalf("ForMIME() error = %v", err)
	}
	if c.MediaType() != MediaType {
		t.Errorf("MediaType() = %q", c.MediaType())
	}
}

func TestRoundTripLength(t *testing.T) {
	c, err := New(16000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pcm := make([]int16, 16000/5) // 200ms tone
	for i := range pcm {
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	stream, err := codec.EncodeAll(c, pcm)
	if err != nil {
		t.Fatalf("EncodeAll() error = %v", err)
	}
	if len(stream) >= len(pcm)*2 {
		t.Errorf("opus stream (%d bytes) should be smaller than raw PCM (%d bytes)", len(stream), len(pcm)*2)
	}

	out, err := codec.DecodeAll(c, stream)
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(out) != len(pcm) {
		t.Errorf("decoded %d samples, want %d", len(out), len(pcm))
	}
}

func TestInvalidRate(t *testing.T) {
	if _, err := New(44100); err == nil {
		t.Error("expected error for unsupported rate")
	}
}
