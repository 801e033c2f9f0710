package httpc

import (
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultTimeout},
		{-time.Second, DefaultTimeout},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).Timeout; got != tt.want {
			t.Errorf("NewClient(%v).Timeout = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClientsShareTransport(t *testing.T) {
	a, b := NewClient(time.Second), NewClient(time.Minute)
	if a.Transport != b.Transport {
		t.Error("clients should share one transport")
	}
}
