// Package command implements the bidirectional WebSocket command/event
// protocol (spec.md §4.8 and §6.2): inbound commands are dispatched
// serially per connection and mutate the engine, grid, color manager and
// preset store; preset mutations reply to the originating connection,
// while per-tick state fans out through the broadcaster.
package command

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/broadcaster"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/engine"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
	"github.com/rgbcct/panelfx/internal/presets"
)

// inboundEnvelope is the generic shape of every incoming message.
type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// outboundEnvelope is the generic shape of every outgoing message.
type outboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// errorPayload is the payload of an "error" event.
type errorPayload struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// Server wires the command protocol to the engine, grid, color manager and
// preset store. One Server instance is shared by every connection; dispatch
// within a single connection's read loop is inherently serial, which is
// the "single-writer" discipline spec.md §5 calls for at the command layer.
type Server struct {
	engine *engine.Engine
	colors *colormanager.Manager
	grid   *grid.Grid
	pres   *presets.Manager
	bcast  *broadcaster.Broadcaster
	log    logger.Logger
}

// New builds a command server over the given collaborators.
func New(eng *engine.Engine, colors *colormanager.Manager, g *grid.Grid, pres *presets.Manager, bcast *broadcaster.Broadcaster, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{engine: eng, colors: colors, grid: g, pres: pres, bcast: bcast, log: log}
}

// HandleConnection subscribes conn to the broadcaster, sends the initial
// "connected" event, then serially reads and dispatches commands until the
// connection closes. Blocking; callers run it in its own goroutine per
// accepted connection.
func (s *Server) HandleConnection(conn *websocket.Conn) {
	id := s.bcast.Subscribe(conn)
	defer s.bcast.Unsubscribe(id)

	s.sendConnected(id)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(id, data)
	}
}

func (s *Server) sendConnected(id string) {
	s.bcast.SendTo(id, outboundEnvelope{
		Type: "connected",
		Payload: map[string]any{
			"columns":       s.grid.Columns(),
			"rowsPerColumn": s.grid.RowsPerColumn(),
			"topology":      s.grid.Mode(),
			"currentEffect": nullableString(s.engine.CurrentEffectName()),
			"fps":           s.engine.FPS(),
		},
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) dispatch(connID string, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError(connID, apperr.New(apperr.InvalidCommand, "malformed message: %v", err))
		return
	}

	var err error
	switch env.Type {
	case "runEffect":
		err = s.handleRunEffect(env.Payload)
	case "stopEffect":
		s.engine.StopCurrentEffect()
	case "setTopology":
		err = s.handleSetTopology(env.Payload)
	case "addPreset":
		err = s.handleAddColorPreset(env.Payload)
	case "savePreset":
		err = s.handleSavePreset(connID, env.Payload)
	case "updatePreset":
		err = s.handleUpdatePreset(connID, env.Payload)
	case "deletePreset":
		err = s.handleDeletePreset(connID, env.Payload)
	case "listPresets":
		s.handleListPresets(connID)
	default:
		err = apperr.New(apperr.InvalidCommand, "unknown command type %q", env.Type)
	}

	if err != nil {
		s.sendError(connID, err)
	}
}

func (s *Server) sendError(connID string, err error) {
	code := apperr.CodeOf(err)
	s.log.Warn("command %s: %v", connID, err)
	s.bcast.SendTo(connID, outboundEnvelope{
		Type:    "error",
		Payload: errorPayload{Code: code, Message: err.Error()},
	})
}

type runEffectPayload struct {
	EffectName string         `json:"effectName"`
	PresetID   string         `json:"presetId"`
	Params     effects.Params `json:"params"`
}

// handleRunEffect implements spec.md §4.8's runEffect: either a direct
// effect name + params, or a reference to a persisted preset whose
// topology and params are loaded from the store.
func (s *Server) handleRunEffect(payload json.RawMessage) error {
	var req runEffectPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid runEffect payload")
	}

	effectName := req.EffectName
	params := req.Params

	if req.PresetID != "" {
		p, err := s.pres.Get(req.PresetID)
		if err != nil {
			return err
		}
		effectName = p.Effect
		params = p.Params
		if err := s.grid.SetMode(p.Topology); err != nil {
			return err
		}
	}

	eff, ok := effects.New(effectName)
	if !ok {
		return apperr.New(apperr.NotFound, "unknown effect %q", effectName)
	}

	merged := effects.Merge(eff.Defaults(), params)
	s.engine.RunEffect(eff, merged)
	return nil
}

type setTopologyPayload struct {
	Mode grid.TopologyMode `json:"mode"`
}

func (s *Server) handleSetTopology(payload json.RawMessage) error {
	var req setTopologyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid setTopology payload")
	}
	return s.grid.SetMode(req.Mode)
}

type addColorPresetPayload struct {
	Name   string              `json:"name"`
	Preset colormanager.Preset `json:"preset"`
}

func (s *Server) handleAddColorPreset(payload json.RawMessage) error {
	var req addColorPresetPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid addPreset payload")
	}
	if req.Name == "" {
		return apperr.New(apperr.InvalidParam, "color preset name must not be empty")
	}
	s.colors.AddPreset(req.Name, req.Preset)
	return nil
}

type savePresetPayload struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Effect   string            `json:"effect"`
	Topology grid.TopologyMode `json:"topology"`
	Params   effects.Params    `json:"params"`
}

func (s *Server) handleSavePreset(connID string, payload json.RawMessage) error {
	var req savePresetPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid savePreset payload")
	}
	saved, err := s.pres.Create(presets.Preset{
		ID:       req.ID,
		Name:     req.Name,
		Effect:   req.Effect,
		Topology: req.Topology,
		Params:   req.Params,
	})
	if err != nil {
		return err
	}
	s.bcast.SendTo(connID, outboundEnvelope{Type: "presetSaved", Payload: saved})
	return nil
}

type updatePresetPayload struct {
	ID       string             `json:"id"`
	Name     *string            `json:"name"`
	Effect   *string            `json:"effect"`
	Topology *grid.TopologyMode `json:"topology"`
	Params   effects.Params     `json:"params"`
}

func (s *Server) handleUpdatePreset(connID string, payload json.RawMessage) error {
	var req updatePresetPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid updatePreset payload")
	}
	updated, err := s.pres.Update(req.ID, presets.Patch{
		Name:     req.Name,
		Effect:   req.Effect,
		Topology: req.Topology,
		Params:   req.Params,
	})
	if err != nil {
		return err
	}
	s.bcast.SendTo(connID, outboundEnvelope{Type: "presetUpdated", Payload: updated})
	return nil
}

type deletePresetPayload struct {
	ID string `json:"id"`
}

func (s *Server) handleDeletePreset(connID string, payload json.RawMessage) error {
	var req deletePresetPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperr.Wrap(apperr.InvalidCommand, err, "invalid deletePreset payload")
	}
	if err := s.pres.Delete(req.ID); err != nil {
		return err
	}
	s.bcast.SendTo(connID, outboundEnvelope{Type: "presetDeleted", Payload: map[string]string{"id": req.ID}})
	return nil
}

func (s *Server) handleListPresets(connID string) {
	s.bcast.SendTo(connID, outboundEnvelope{Type: "presetsList", Payload: s.pres.GetAll()})
}
