// Package websocket serves browser renderers. The hub turns engine render
// and audio commands into streaming envelopes, replays the current scene to
// late joiners and forwards browser UI events to the engine.
package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/phototrip/phototrip/internal/cache"
	"github.com/phototrip/phototrip/pkg/streaming"
)

// ErrNoRenderer is returned by Play when no browser is connected to hear it.
var ErrNoRenderer = errors.New("no renderer connected")

// EventHandler runs a UI event and returns its result. It is called from
// the connection's read goroutine.
type EventHandler func(ev streaming.UIEvent) (any, error)

// Dependencies holds the collaborators of a Hub.
type Dependencies struct {
	Logger  *slog.Logger
	OnEvent EventHandler
	// PhotoPrefix is the URL prefix photos are served under.
	PhotoPrefix string
	// CheckOrigin overrides the upgrader's origin check when set.
	CheckOrigin func(r *http.Request) bool
}

// Hub fans renderer commands out to every connected browser.
type Hub struct {
	deps     Dependencies
	logger   *slog.Logger
	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[string]*connection
	scene   *scene
	playing bool

	connected cache.SafeCounter
}

// NewHub creates a Hub with an empty scene.
func NewHub(deps Dependencies) *Hub {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		deps:    deps,
		logger:  logger,
		clients: make(map[string]*connection),
		scene:   newScene(),
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     deps.CheckOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and registers the browser.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := newConnection(uuid.NewString(), conn, h.logger)
	h.register(c)

	go c.writeLoop()
	c.readLoop(h.handleMessage)
	h.unregister(c)
}

// register adds c and queues the current scene before any later command.
func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, msg := range h.scene.replay() {
		c.trySend(msg)
	}
	h.clients[c.id] = c
	h.connected.Set(len(h.clients))
	h.logger.Info("Renderer connected", "client", c.id, "clients", len(h.clients))
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	h.connected.Set(len(h.clients))
	c.close()
	h.logger.Info("Renderer disconnected", "client", c.id, "clients", len(h.clients))
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	return h.connected.Value()
}

// Close disconnects every browser.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.connected.Set(0)
}

// Broadcast sends a message that is not part of the scene.
func (h *Hub) Broadcast(typ string, payload any) {
	h.emit(typ, payload, nil)
}

// emit encodes the envelope, lets record fold it into the scene and sends
// it to every client. Clients whose queue is full are dropped.
func (h *Hub) emit(typ string, payload any, record func(s *scene, msg []byte)) {
	msg, err := streaming.Encode(typ, payload)
	if err != nil {
		h.logger.Error("Failed to encode renderer command", "type", typ, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if record != nil {
		record(h.scene, msg)
	}
	for id, c := range h.clients {
		if !c.trySend(msg) {
			h.logger.Warn("Dropping slow renderer", "client", id)
			delete(h.clients, id)
			c.close()
		}
	}
	h.connected.Set(len(h.clients))
}

func (h *Hub) handleMessage(c *connection, data []byte) {
	env, err := streaming.Decode(data)
	if err != nil {
		h.reply(c, streaming.AckMessage{Type: streaming.TypeAck, Error: err.Error()})
		return
	}
	if env.Type != streaming.TypeUIEvent {
		h.reply(c, streaming.AckMessage{Type: streaming.TypeAck, For: env.Type, Error: "unsupported message type"})
		return
	}

	var ev streaming.UIEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.Command == "" {
		h.reply(c, streaming.AckMessage{Type: streaming.TypeAck, Error: "invalid ui event"})
		return
	}

	ack := streaming.AckMessage{Type: streaming.TypeAck, For: ev.Command}
	if h.deps.OnEvent == nil {
		ack.Error = "no event handler"
	} else if result, err := h.deps.OnEvent(ev); err != nil {
		ack.Error = err.Error()
	} else {
		ack.Result = result
	}
	h.reply(c, ack)
}

func (h *Hub) reply(c *connection, ack streaming.AckMessage) {
	data, err := json.Marshal(ack)
	if err != nil {
		h.logger.Error("Failed to encode ack", "error", err)
		return
	}
	c.trySend(data)
}
