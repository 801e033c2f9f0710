package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	cfg.BufferDuration = 5 * time.Millisecond
	return cfg
}

func readChunk(t *testing.T, src Source) AudioChunk {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return chunk
}

func TestMockSourceLifecycle(t *testing.T) {
	src := NewMockSource(fastConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := src.Start(ctx); err != nil {
			t.Fatalf("Start #%d: %v", i+1, err)
		}
	}
	if !src.Running() {
		t.Error("source should be running")
	}
	for i := 0; i < 2; i++ {
		if err := src.Stop(); err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
	}

	src.Close()
	if !src.Closed() {
		t.Error("source should be closed")
	}
	if err := src.Start(ctx); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Start after Close = %v, want io.ErrClosedPipe", err)
	}
}

func TestMockSourceChunks(t *testing.T) {
	cfg := fastConfig()
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	chunk := readChunk(t, src)
	if len(chunk.Samples) != cfg.BufferSize() {
		t.Errorf("chunk has %d samples, want %d", len(chunk.Samples), cfg.BufferSize())
	}
	if chunk.SampleRate != cfg.SampleRate || chunk.Channels != 1 {
		t.Errorf("chunk format = %d Hz x%d", chunk.SampleRate, chunk.Channels)
	}
	var peak int16
	for _, s := range chunk.Samples {
		peak = max(peak, s)
	}
	if peak < 1000 {
		t.Errorf("sine peak = %d, expected audible signal", peak)
	}
	if src.ChunksRead() < 1 {
		t.Error("ChunksRead should count delivered chunks")
	}
}

func TestMockSourceScriptReplaysOnStart(t *testing.T) {
	cfg := fastConfig()
	script := []int16{11, 22, 33}
	src := NewMockSource(cfg, nil, WithSamples(script))
	defer src.Close()

	for round := 0; round < 2; round++ {
		if err := src.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		chunk := readChunk(t, src)
		for i, want := range script {
			if chunk.Samples[i] != want {
				t.Fatalf("round %d sample %d = %d, want %d", round, i, chunk.Samples[i], want)
			}
		}
		if chunk.Samples[len(script)] != 0 {
			t.Errorf("after the script the mock should be silent")
		}
		src.Stop()
		for {
			if _, err := src.Read(context.Background()); err == io.EOF {
				break
			}
		}
	}
}

func TestMockSourceStartError(t *testing.T) {
	denied := errors.New("permission denied")
	src := NewMockSource(fastConfig(), nil, WithStartError(denied))
	if err := src.Start(context.Background()); !errors.Is(err, denied) {
		t.Errorf("Start() = %v, want %v", err, denied)
	}
	if _, err := src.Read(context.Background()); err != io.EOF {
		t.Errorf("Read on a never-started source = %v, want EOF", err)
	}
}

func TestMockSink(t *testing.T) {
	ctx := context.Background()
	chunk := AudioChunk{Samples: []int16{1, 2, 3}, SampleRate: 16000, Channels: 1}

	t.Run("write requires start", func(t *testing.T) {
		sink := NewMockSink(fastConfig(), nil)
		if err := sink.Write(ctx, chunk); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("Write before Start = %v", err)
		}
	})

	t.Run("records and flushes", func(t *testing.T) {
		sink := NewMockSink(fastConfig(), nil)
		sink.Start(ctx)
		sink.Write(ctx, chunk)
		sink.Write(ctx, chunk)
		if err := sink.Flush(ctx); err != nil {
			t.Fatal(err)
		}
		if got := len(sink.Written()); got != 6 {
			t.Errorf("written = %d samples, want 6", got)
		}
		if sink.Flushes() != 1 {
			t.Errorf("flushes = %d, want 1", sink.Flushes())
		}
	})

	t.Run("injected failure", func(t *testing.T) {
		sink := NewMockSink(fastConfig(), nil)
		sink.Start(ctx)
		boom := errors.New("device unplugged")
		sink.FailWrites(boom)
		if err := sink.Write(ctx, chunk); !errors.Is(err, boom) {
			t.Errorf("Write = %v, want %v", err, boom)
		}
	})

	t.Run("flush delay honours context", func(t *testing.T) {
		sink := NewMockSink(fastConfig(), nil)
		sink.Start(ctx)
		sink.SetFlushDelay(time.Hour)
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		if err := sink.Flush(cctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Flush = %v, want deadline exceeded", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		sink := NewMockSink(fastConfig(), nil)
		sink.Close()
		if err := sink.Start(ctx); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("Start after Close = %v", err)
		}
	})
}

func TestAudioChunk(t *testing.T) {
	in := AudioChunk{Samples: []int16{-32768, -1, 0, 1, 32767}, SampleRate: 16000, Channels: 1}

	var out AudioChunk
	out.FromBytes(in.Bytes(), 16000, 1)
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, out.Samples[i], in.Samples[i])
		}
	}

	stereo := AudioChunk{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 2}
	if d := stereo.Duration(); d != 1 {
		t.Errorf("Duration = %v, want 1s", d)
	}
	if e := stereo.Elapsed(); e != time.Second {
		t.Errorf("Elapsed = %v, want 1s", e)
	}
	if d := (&AudioChunk{}).Duration(); d != 0 {
		t.Errorf("empty Duration = %v", d)
	}
}
