package devserver

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/metrics"
)

const (
	hubWriteWait = 10 * time.Second
	hubPongWait  = 60 * time.Second
	hubPingEvery = (hubPongWait * 9) / 10
)

var hubUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Message is one hot-reload protocol frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans compile results out to browsers. Clients connect with a
// websocket, or with an event stream when the upgrade is not requested.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*hubClient
	hot     bool
	last    []Message
	closed  bool
	metrics metrics.Recorder
	logger  *slog.Logger
}

type hubClient struct {
	id   int
	ch   chan Message
	done chan struct{}
}

// NewHub creates a hub. hot announces hot module replacement to clients.
func NewHub(hot bool, rec metrics.Recorder, logger *slog.Logger) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: map[int]*hubClient{}, hot: hot, metrics: rec, logger: logger}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "dev server shutting down", http.StatusServiceUnavailable)
		return
	}
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWebSocket(w, r)
		return
	}
	h.serveEvents(w, r)
}

func (h *Hub) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := hubUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client, backlog := h.addClient()
	defer h.removeClient(client.id)

	if err := conn.SetReadDeadline(time.Now().Add(hubPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})
	// Reads only serve to notice the browser going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg Message) error {
		if err := conn.SetWriteDeadline(time.Now().Add(hubWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}
	for _, msg := range backlog {
		if err := write(msg); err != nil {
			return
		}
	}

	ticker := time.NewTicker(hubPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-client.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(hubWriteWait))
			return
		case msg := <-client.ch:
			if err := write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(hubWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) serveEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, backlog := h.addClient()
	defer h.removeClient(client.id)

	bw := bufio.NewWriter(w)
	send := func(msg Message) bool {
		data, err := json.Marshal(msg)
		if err != nil {
			return true
		}
		if _, err := bw.WriteString("data: " + string(data) + "\n\n"); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		return
	}
	for _, msg := range backlog {
		if !send(msg) {
			return
		}
	}
	_ = bw.Flush()
	flusher.Flush()

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		case msg := <-client.ch:
			if !send(msg) {
				return
			}
		}
	}
}

func (h *Hub) addClient() (*hubClient, []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client := &hubClient{id: h.nextID, ch: make(chan Message, 16), done: make(chan struct{})}
	h.nextID++
	h.clients[client.id] = client
	h.metrics.SetHotReloadClients(len(h.clients))

	backlog := make([]Message, 0, len(h.last)+1)
	if h.hot {
		backlog = append(backlog, Message{Type: "hot"})
	}
	backlog = append(backlog, h.last...)
	return client, backlog
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.metrics.SetHotReloadClients(len(h.clients))
	}
}

// Publish sends the outcome of a compile to every client. Compiler errors
// go to the overlay only.
func (h *Hub) Publish(res bundler.CompileResult) {
	h.Broadcast(CompileMessages(res)...)
}

// CompileMessages renders a compile result as protocol frames.
func CompileMessages(res bundler.CompileResult) []Message {
	switch {
	case res.Err != nil:
		return []Message{{Type: "errors", Data: []string{res.Err.Error()}}}
	case res.Stats == nil:
		return []Message{{Type: "errors", Data: []string{"bundler reported no stats"}}}
	}
	msgs := []Message{{Type: "hash", Data: res.Stats.Hash}}
	switch {
	case res.Stats.HasErrors():
		msgs = append(msgs, Message{Type: "errors", Data: []string(res.Stats.Errors)})
	case res.Stats.HasWarnings():
		msgs = append(msgs, Message{Type: "warnings", Data: []string(res.Stats.Warnings)})
	default:
		msgs = append(msgs, Message{Type: "ok"})
	}
	return msgs
}

// Broadcast sends msgs to every client and keeps them for late joiners.
// Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(msgs ...Message) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.last = msgs
	snapshot := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
	send:
		for _, msg := range msgs {
			select {
			case c.ch <- msg:
			default:
				dropped++
				h.removeClient(c.id)
				break send
			}
		}
	}
	h.logger.Debug("Hot reload broadcast", slog.Int("clients", len(snapshot)), slog.Int("dropped", dropped))
}

// Shutdown disconnects every client and stops future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*hubClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.metrics.SetHotReloadClients(0)
}
