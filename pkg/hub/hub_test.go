package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voiceloop/internal/log"
)

type frame struct {
	kind int
	data []byte
}

// fakeConn blocks reads until hangup and records every write.
type fakeConn struct {
	hangup chan struct{}
	once   sync.Once

	mu     sync.Mutex
	frames []frame
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{hangup: make(chan struct{})} }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.hangup
	return 0, nil, errors.New("connection closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{kind, append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) HangUp() { f.once.Do(func() { close(f.hangup) }) }

func (f *fakeConn) Frames() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	waitFor(t, h.Running)
	return h, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatal(err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
	return Event{}
}

func TestEncode(t *testing.T) {
	msg, err := Encode("snapshot", map[string]string{"state": "idle"})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != `{"type":"snapshot","data":{"state":"idle"}}` {
		t.Errorf("Encode() = %s", msg)
	}
	if _, err := Encode("bad", make(chan int)); err == nil {
		t.Error("unencodable data should fail")
	}
}

func TestNewClientReceivesLastMessage(t *testing.T) {
	h, _ := startHub(t)

	first := newClient(h, newFakeConn())
	if err := h.BroadcastEvent("snapshot", "recording"); err != nil {
		t.Fatal(err)
	}
	if ev := recv(t, first); ev.Data != "recording" {
		t.Fatalf("first client got %+v", ev)
	}

	late := newClient(h, newFakeConn())
	if ev := recv(t, late); ev.Type != "snapshot" || ev.Data != "recording" {
		t.Errorf("late client got %+v, want the last snapshot", ev)
	}
	if n := h.ClientCount(); n != 2 {
		t.Errorf("ClientCount() = %d, want 2", n)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h, _ := startHub(t)
	c := newClient(h, newFakeConn())
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	for range cap(c.send) + 1 {
		h.Broadcast(Message(`{"type":"tick","data":null}`))
	}
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestStopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := newClient(h, newFakeConn())
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, func() bool { return !h.Running() })
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
	if newClient(h, newFakeConn()) != nil {
		t.Error("a stopped hub should refuse clients")
	}
}

func TestClientPumps(t *testing.T) {
	h, _ := startHub(t)
	conn := newFakeConn()
	c := newClient(h, conn)

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	if err := h.BroadcastEvent("snapshot", "idle"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(conn.Frames()) > 0 })
	if f := conn.Frames()[0]; f.kind != websocket.TextMessage {
		t.Errorf("first frame kind = %d, want text", f.kind)
	}

	conn.HangUp()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after hangup")
	}
	waitFor(t, func() bool { return h.ClientCount() == 0 })
	waitFor(t, func() bool {
		frames := conn.Frames()
		return frames[len(frames)-1].kind == websocket.CloseMessage
	})
}
