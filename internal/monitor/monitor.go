// Package monitor broadcasts a running simulation's tick progress and
// per-entity samples to connected WebSocket clients, for live observation of
// a long Run. It is optional: a Simulator with no Hub attached runs exactly
// as before.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope every broadcast is wrapped in.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProgressPayload reports how far a Run has advanced.
type ProgressPayload struct {
	Tick  int `json:"tick"`
	Ticks int `json:"ticks"`
}

// SamplePayload reports one tracked entity's current value.
type SamplePayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Hub fans broadcasts out to every connected WebSocket client.
type Hub struct {
	logger  *log.Logger
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty Hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger, clients: make(map[*websocket.Conn]bool)}
}

// ServeHTTP upgrades the request to a WebSocket and registers the resulting
// connection as a client. Inbound messages are discarded; the connection is
// removed from the hub as soon as a read fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	h.addClient(conn)

	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.logger.Debug("monitor client connected", "total", len(h.clients))
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
	h.logger.Debug("monitor client disconnected", "remaining", len(h.clients))
}

// Broadcast sends msg to every connected client, dropping any that error on
// write.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("monitor marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			go h.removeClient(conn)
		}
	}
}

// BroadcastProgress announces that tick of ticks has just completed.
func (h *Hub) BroadcastProgress(tick, ticks int) {
	h.Broadcast(Message{Type: "progress", Payload: ProgressPayload{Tick: tick, Ticks: ticks}})
}

// SampleBroadcaster is an engine.Tracker that publishes a named entity's
// per-tick sample to a Hub, instead of (or alongside) writing it to disk.
type SampleBroadcaster struct {
	hub  *Hub
	name string
}

// NewSampleBroadcaster attaches name's per-tick samples to hub.
func NewSampleBroadcaster(hub *Hub, name string) *SampleBroadcaster {
	return &SampleBroadcaster{hub: hub, name: name}
}

// Tick publishes sample under the broadcaster's name.
func (b *SampleBroadcaster) Tick(sample float64) error {
	b.hub.Broadcast(Message{Type: "sample", Payload: SamplePayload{Name: b.name, Value: sample}})
	return nil
}
