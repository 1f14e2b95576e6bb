package broadcaster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

var upgrader = websocket.Upgrader{}

// newTestServer spins up a real websocket endpoint backed by b, returning
// the dialed client connection.
func newTestServer(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		b.Subscribe(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRenderBroadcastsStateUpdate(t *testing.T) {
	b := New(logger.NopLogger{}, nil)
	conn := newTestServer(t, b)

	waitForCount(t, b, 1)

	states := []grid.State{{Color: colorspace.RGBCCT{R: 10}, Brightness: 0.5}}
	b.Render(states, grid.Linear)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got StateUpdate
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "stateUpdate" {
		t.Fatalf("Type = %q, want stateUpdate", got.Type)
	}
	if got.Payload.Topology != string(grid.Linear) {
		t.Fatalf("Topology = %q, want %q", got.Payload.Topology, grid.Linear)
	}
	if len(got.Payload.Panels) != 1 || got.Payload.Panels[0].Color.R != 10 {
		t.Fatalf("unexpected panels: %+v", got.Payload.Panels)
	}
	if got.Payload.CurrentEffect != nil {
		t.Fatalf("CurrentEffect = %v, want nil with no effect name func set", got.Payload.CurrentEffect)
	}
}

func TestRenderPopulatesCurrentEffectName(t *testing.T) {
	b := New(logger.NopLogger{}, func() string { return "flow" })
	conn := newTestServer(t, b)
	waitForCount(t, b, 1)

	b.Render(make([]grid.State, 1), grid.Singular)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var got StateUpdate
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Payload.CurrentEffect == nil || *got.Payload.CurrentEffect != "flow" {
		t.Fatalf("CurrentEffect = %v, want \"flow\"", got.Payload.CurrentEffect)
	}
}

func TestRenderWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := New(logger.NopLogger{}, nil)
	done := make(chan struct{})
	go func() {
		b.Render(make([]grid.State, 4), grid.Singular)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Render blocked with no subscribers")
	}
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	b := New(logger.NopLogger{}, nil)
	_ = newTestServer(t, b)
	waitForCount(t, b, 1)

	var id string
	for k := range snapshotIDs(b) {
		id = k
	}
	b.Unsubscribe(id)
	waitForCount(t, b, 0)
}

func TestCloseAllClosesEveryConnectionAndEmptiesSubscribers(t *testing.T) {
	b := New(logger.NopLogger{}, nil)
	conn1 := newTestServer(t, b)
	conn2 := newTestServer(t, b)
	waitForCount(t, b, 2)

	b.CloseAll()

	if got := b.Count(); got != 0 {
		t.Fatalf("Count() after CloseAll = %d, want 0", got)
	}

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		if err == nil {
			t.Fatalf("expected connection to be closed after CloseAll")
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Fatalf("expected a normal close frame, got: %v", err)
		}
	}
}

func snapshotIDs(b *Broadcaster) map[string]struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]struct{}, len(b.subs))
	for id := range b.subs {
		out[id] = struct{}{}
	}
	return out
}

func waitForCount(t *testing.T, b *Broadcaster, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscriber count never reached %d (last %d)", want, b.Count())
}
