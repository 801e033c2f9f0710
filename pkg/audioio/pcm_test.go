package audioio

import (
	"math"
	"testing"
)

func TestPCM16BytesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out := BytesToPCM16(PCM16Bytes(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestBytesToPCM16OddLength(t *testing.T) {
	if got := BytesToPCM16([]byte{1, 0, 7}); len(got) != 1 || got[0] != 1 {
		t.Errorf("BytesToPCM16 = %v, want [1]", got)
	}
}

func TestFloatToPCM16Clamps(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	got := FloatToPCM16([]float32{0, 1, -1, 2, -3, 0.5, nan, inf, -inf})
	want := []int16{0, 32767, -32767, 32767, -32767, 16383, 0, 32767, -32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCM16ToFloatRange(t *testing.T) {
	for _, s := range PCM16ToFloat([]int16{-32768, 0, 32767}) {
		if s < -1 || s > 1 {
			t.Errorf("sample %v out of range", s)
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAV([]int16{1, 2, 3}, 16000, 1)
	if len(wav) != 44+6 {
		t.Fatalf("len = %d, want 50", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Errorf("unexpected header %q", wav[:44])
	}
	if rate := uint32(wav[24]) | uint32(wav[25])<<8 | uint32(wav[26])<<16 | uint32(wav[27])<<24; rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
}
