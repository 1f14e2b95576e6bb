// Package broadcaster fans the engine's per-frame grid state out to every
// connected WebSocket subscriber (spec.md §5): a bounded, drop-oldest queue
// per subscriber means one slow client never slows the tick loop down for
// everybody else.
package broadcaster

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

// queueDepth is how many unsent frames a subscriber is allowed to lag by
// before the oldest queued frame is dropped in favor of the new one.
const queueDepth = 4

// panelEvent is one panel's state on the wire.
type panelEvent struct {
	Color      colorspace.RGBCCT `json:"color"`
	Brightness float64           `json:"brightness"`
	Timestamp  int64             `json:"timestamp"`
}

// StatePayload is the payload of the outbound "stateUpdate" event
// (spec.md §6.2): a length-N array of panel states, the active effect
// name (or null when idle), and a timestamp.
type StatePayload struct {
	Panels        []panelEvent `json:"panels"`
	Topology      string       `json:"topology"`
	CurrentEffect *string      `json:"currentEffect"`
	Timestamp     int64        `json:"timestamp"`
}

// StateUpdate is the outbound envelope sent on every tick.
type StateUpdate struct {
	Type    string       `json:"type"`
	Payload StatePayload `json:"payload"`
}

// subscriber is one connected websocket client and its outbound queue.
type subscriber struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func (s *subscriber) enqueue(payload []byte) {
	select {
	case s.send <- payload:
	default:
		select {
		case <-s.send:
		default:
		}
		select {
		case s.send <- payload:
		default:
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// Broadcaster implements engine.Output, serializing every frame once and
// handing the encoded bytes to each subscriber's own queue and writer
// goroutine.
type Broadcaster struct {
	mu                sync.RWMutex
	subs              map[string]*subscriber
	log               logger.Logger
	currentEffectName func() string
}

// New creates an empty broadcaster. currentEffectName, if non-nil, is
// polled once per Render call to populate stateUpdate.payload.currentEffect;
// it is typically engine.Engine.CurrentEffectName.
func New(log logger.Logger, currentEffectName func() string) *Broadcaster {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Broadcaster{subs: make(map[string]*subscriber), log: log, currentEffectName: currentEffectName}
}

// Subscribe registers conn as a new subscriber, identified by a fresh uuid,
// and starts its dedicated writer goroutine. It returns the subscriber id
// so the caller (the command server) can correlate inbound commands.
func (b *Broadcaster) Subscribe(conn *websocket.Conn) string {
	id := uuid.NewString()
	sub := &subscriber{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, queueDepth),
		closed: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	go b.writeLoop(sub)
	return id
}

// Unsubscribe removes and closes a subscriber by id; safe to call multiple
// times or on an unknown id.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Count reports the number of currently connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// CloseAll sends a close frame to every connected subscriber and tears
// down its connection and writer goroutine. Used during graceful shutdown
// so clients see a clean close instead of the connection just dying with
// the process.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for id, s := range b.subs {
		subs = append(subs, s)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	for _, s := range subs {
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = s.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		s.close()
	}
}

func (b *Broadcaster) writeLoop(sub *subscriber) {
	for {
		select {
		case <-sub.closed:
			return
		case payload, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				b.log.Warn("broadcaster: dropping subscriber %s after write error: %v", sub.id, err)
				b.Unsubscribe(sub.id)
				return
			}
		}
	}
}

// Render implements engine.Output: it is called once per tick from the
// engine's own goroutine and must not block on a slow client.
func (b *Broadcaster) Render(states []grid.State, mode grid.TopologyMode) {
	b.mu.RLock()
	if len(b.subs) == 0 {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	now := time.Now().UnixMilli()
	panels := make([]panelEvent, len(states))
	for i, s := range states {
		panels[i] = panelEvent{Color: s.Color, Brightness: s.Brightness, Timestamp: s.Timestamp}
	}

	var currentEffect *string
	if b.currentEffectName != nil {
		if name := b.currentEffectName(); name != "" {
			currentEffect = &name
		}
	}

	update := StateUpdate{
		Type: "stateUpdate",
		Payload: StatePayload{
			Panels:        panels,
			Topology:      string(mode),
			CurrentEffect: currentEffect,
			Timestamp:     now,
		},
	}

	payload, err := json.Marshal(update)
	if err != nil {
		b.log.Error("broadcaster: marshal stateUpdate: %v", err)
		return
	}

	for _, s := range subs {
		s.enqueue(payload)
	}
}

// BroadcastEvent JSON-encodes an arbitrary event value (e.g.
// presetSaved, error) and sends it to every connected subscriber, outside the regular
// per-tick stateUpdate stream.
func (b *Broadcaster) BroadcastEvent(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Error("broadcaster: marshal event: %v", err)
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		s.enqueue(payload)
	}
}

// SendTo JSON-encodes an event value and delivers it to a single subscriber only,
// used for command responses (spec.md §6.2's per-request replies).
func (b *Broadcaster) SendTo(id string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Error("broadcaster: marshal event for %s: %v", id, err)
		return
	}
	b.mu.RLock()
	sub, ok := b.subs[id]
	b.mu.RUnlock()
	if ok {
		sub.enqueue(payload)
	}
}
