package command

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rgbcct/panelfx/internal/broadcaster"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/engine"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
	"github.com/rgbcct/panelfx/internal/presets"
)

var upgrader = websocket.Upgrader{}

type harness struct {
	conn  *websocket.Conn
	eng   *engine.Engine
	pres  *presets.Manager
	grid  *grid.Grid
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	g := grid.New(2, 7, grid.Circular)
	colors := colormanager.New(logger.NopLogger{})
	eng := engine.New(g, colors, 60, logger.NopLogger{})
	pm := presets.New(filepath.Join(t.TempDir(), "presets.json"), logger.NopLogger{})
	if err := pm.Load(); err != nil {
		t.Fatalf("presets Load: %v", err)
	}
	bcast := broadcaster.New(logger.NopLogger{}, eng.CurrentEffectName)
	srv := New(eng, colors, g, pm, bcast, logger.NopLogger{})

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		go srv.HandleConnection(conn)
	}))
	t.Cleanup(httpSrv.Close)

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &harness{conn: conn, eng: eng, pres: pm, grid: g}
}

func (h *harness) readEnvelope(t *testing.T) outboundEnvelope {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := h.conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var env outboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func (h *harness) send(t *testing.T, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": msgType, "payload": payload})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func TestHandleConnectionSendsConnectedOnAccept(t *testing.T) {
	h := newHarness(t)
	env := h.readEnvelope(t)
	if env.Type != "connected" {
		t.Fatalf("Type = %q, want connected", env.Type)
	}
}

func TestRunEffectByNameStartsEffect(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "runEffect", map[string]any{
		"effectName": "solid",
		"params": map[string]any{
			"brightness":         map[string]any{"kind": "number", "number": 1},
			"transitionDuration": map[string]any{"kind": "number", "number": 0},
		},
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.eng.CurrentEffectName() == "solid" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("effect never became solid, got %q", h.eng.CurrentEffectName())
}

func TestRunEffectUnknownNameSendsError(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "runEffect", map[string]any{"effectName": "doesNotExist"})
	env := h.readEnvelope(t)
	if env.Type != "error" {
		t.Fatalf("Type = %q, want error", env.Type)
	}
}

func TestSavePresetRoundTripsAndRejectsDuplicateID(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "savePreset", map[string]any{
		"id":       "My Preset!!",
		"name":     "x",
		"effect":   "flow",
		"topology": "linear",
		"params":   map[string]any{},
	})
	env := h.readEnvelope(t)
	if env.Type != "presetSaved" {
		t.Fatalf("Type = %q, want presetSaved", env.Type)
	}
	if saved, ok := env.Payload.(map[string]any); !ok || saved["id"] != "my-preset" {
		t.Fatalf("presetSaved payload = %v, want sanitized id my-preset", env.Payload)
	}

	h.send(t, "savePreset", map[string]any{
		"id":     "my preset",
		"name":   "y",
		"effect": "flow",
		"params": map[string]any{},
	})
	env = h.readEnvelope(t)
	if env.Type != "error" {
		t.Fatalf("Type = %q, want error on duplicate id", env.Type)
	}
}

func TestDeleteProtectedPresetSendsError(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "deletePreset", map[string]any{"id": "sequential-ww"})
	env := h.readEnvelope(t)
	if env.Type != "error" {
		t.Fatalf("Type = %q, want error", env.Type)
	}
}

func TestListPresetsReturnsSeededDefaults(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "listPresets", nil)
	env := h.readEnvelope(t)
	if env.Type != "presetsList" {
		t.Fatalf("Type = %q, want presetsList", env.Type)
	}
	if list, ok := env.Payload.([]any); !ok || len(list) != 7 {
		t.Fatalf("presetsList payload = %v, want the 7 seeded defaults", env.Payload)
	}
}

func TestSetTopologyChangesGridMode(t *testing.T) {
	h := newHarness(t)
	h.readEnvelope(t) // connected

	h.send(t, "setTopology", map[string]any{"mode": "linear"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.grid.Mode() == grid.Linear {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("grid mode never became linear, got %q", h.grid.Mode())
}
