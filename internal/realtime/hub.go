package realtime

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"shoplist-go/internal/metrics"
	"shoplist-go/pkg/logger"
)

const defaultSendBuffer = 16

// Hub tracks connected WebSocket clients and broadcasts messages to them.
// A client that cannot keep up misses messages; nothing is retried.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	upgrader   websocket.Upgrader
	sendBuffer int
	log        logger.Logger
}

func NewHub(allowedOrigins []string, sendBuffer int, log logger.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	h := &Hub{
		clients:    make(map[*client]struct{}),
		sendBuffer: sendBuffer,
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// ServeHTTP upgrades the request and keeps the connection registered until
// either side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.BusinessError("realtime.serve: upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

// Broadcast queues message for every client and returns how many accepted it.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- message:
			delivered++
		default:
			metrics.EventsDroppedTotal.Inc()
			h.log.Warn("realtime.broadcast: client buffer full, message dropped", "client_id", c.id)
		}
	}
	return delivered
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.RealtimeClients.Set(0)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(count))
	h.log.Info("realtime: client connected", "client_id", c.id, "clients", count)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.RealtimeClients.Set(float64(count))
		h.log.Info("realtime: client disconnected", "client_id", c.id, "clients", count)
	}
}

func originChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send Origin.
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
