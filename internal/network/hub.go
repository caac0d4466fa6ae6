package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/platform/metrics"
)

// Controller is the part of the session the websocket clients drive.
type Controller interface {
	Start() error
	Press(id string) bool
	Reset()
	State() engine.State
}

// Options sizes the hub's buffers and limits.
type Options struct {
	BroadcastBuffer      int
	ClientSendBuffer     int
	MaxMessagesPerSecond int
	MaxClients           int
}

// DefaultOptions returns the production buffer sizes.
func DefaultOptions() Options {
	return Options{
		BroadcastBuffer:      256,
		ClientSendBuffer:     64,
		MaxMessagesPerSecond: 20,
		MaxClients:           32,
	}
}

type outbound struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients, relays session updates to all of
// them and routes their commands to the session.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	unicast    chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	controller Controller
	opts       Options
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub for ctrl.
func NewHub(ctrl Controller, opts Options, log *logger.Logger, m *metrics.Collector) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.Get()
	}
	if opts.BroadcastBuffer < 1 {
		opts.BroadcastBuffer = 1
	}
	if opts.ClientSendBuffer < 1 {
		opts.ClientSendBuffer = 1
	}
	return &Hub{
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		unicast:    make(chan outbound, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		controller: ctrl,
		opts:       opts,
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
			h.metrics.RecordWSConnection(-1)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Infof("WebSocket client %s connected", client.id)
		case client := <-h.unregister:
			h.drop(client, "disconnected")
		case out := <-h.unicast:
			h.mu.Lock()
			_, ok := h.clients[out.client]
			h.mu.Unlock()
			if ok {
				h.deliver(out.client, out.payload)
			}
		case message := <-h.broadcast:
			h.mu.Lock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				targets = append(targets, client)
			}
			h.mu.Unlock()
			for _, client := range targets {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues payload on the client; a client whose buffer is full is
// disconnected rather than allowed to stall the others.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
		h.drop(client, "dropped: send buffer full")
	}
}

func (h *Hub) drop(client *Client, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Infof("WebSocket client %s %s", client.id, reason)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnUpdate implements engine.Observer by broadcasting every session update.
func (h *Hub) OnUpdate(u engine.Update) {
	h.Broadcast(FromUpdate(u))
}

// Broadcast serializes msg and sends it to every connected client.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for WebSocket broadcast: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// sendTo queues msg for a single client.
func (h *Hub) sendTo(c *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for client %s: %v", msg.Type, c.id, err)
		return
	}
	select {
	case h.unicast <- outbound{client: c, payload: payload}:
	case <-h.done:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the board UI may be served from a dev server
	},
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxClients > 0 && h.ClientCount() >= h.opts.MaxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Errorf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}
	h.sendTo(client, FromState(h.controller.State()))

	go client.WritePump()
	go client.ReadPump()
}
