package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-voiceloop/pkg/audioio"
)

func newSink(rate int) *audioio.MockSink {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendMock
	cfg.SampleRate = rate
	return audioio.NewMockSink(cfg, nil)
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err, ok := <-done:
		if !ok {
			t.Fatal("done channel closed without a value")
		}
		if _, more := <-done; more {
			t.Fatal("done channel delivered more than one value")
		}
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
		return nil
	}
}

func TestPlayWritesAllSamples(t *testing.T) {
	sink := newSink(16000)
	p := New(sink)
	defer p.Close()

	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = 0.5
	}

	done, err := p.Play(context.Background(), samples, 16000)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := wait(t, done); err != nil {
		t.Fatalf("playback error = %v", err)
	}

	written := sink.Written()
	if len(written) != 1000 {
		t.Fatalf("wrote %d samples, want 1000", len(written))
	}
	if written[0] != 16383 {
		t.Errorf("sample = %d, want 16383", written[0])
	}
	if sink.Flushes() != 1 {
		t.Errorf("flushes = %d, want 1", sink.Flushes())
	}
}

func TestPlayResamples(t *testing.T) {
	sink := newSink(16000)
	p := New(sink)
	defer p.Close()

	done, err := p.Play(context.Background(), make([]float32, 24000), 24000)
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, done); err != nil {
		t.Fatal(err)
	}
	if n := len(sink.Written()); n != 16000 {
		t.Errorf("wrote %d samples, want 16000", n)
	}
}

func TestPlayWriteFailure(t *testing.T) {
	sink := newSink(16000)
	device := errors.New("device unplugged")
	sink.FailWrites(device)
	p := New(sink)
	defer p.Close()

	done, err := p.Play(context.Background(), make([]float32, 100), 16000)
	if err != nil {
		t.Fatal(err)
	}
	err = wait(t, done)

	var perr *Error
	if !errors.As(err, &perr) || perr.Op != "write" {
		t.Fatalf("error = %v, want *Error op write", err)
	}
	if !errors.Is(err, device) {
		t.Errorf("error does not wrap device failure: %v", err)
	}
}

func TestPlayStartFailure(t *testing.T) {
	sink := newSink(16000)
	sink.Close()
	p := New(sink)

	_, err := p.Play(context.Background(), make([]float32, 10), 16000)
	var perr *Error
	if !errors.As(err, &perr) || perr.Op != "start" {
		t.Errorf("error = %v, want *Error op start", err)
	}
}

func TestPlayInvalidRate(t *testing.T) {
	p := New(newSink(16000))
	_, err := p.Play(context.Background(), []float32{0}, 0)
	if !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestStopInterruptsPlayback(t *testing.T) {
	sink := newSink(16000)
	sink.SetFlushDelay(time.Minute)
	p := New(sink)
	defer p.Close()

	done, err := p.Play(context.Background(), make([]float32, 320), 16000)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	p.Stop()

	err = wait(t, done)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEmptyBuffer(t *testing.T) {
	sink := newSink(16000)
	p := New(sink)
	defer p.Close()

	done, err := p.Play(context.Background(), nil, 24000)
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, done); err != nil {
		t.Errorf("empty buffer error = %v", err)
	}
}
