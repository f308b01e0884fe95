package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between reads before the connection is considered dead.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a peer. Clients only listen.
	maxMessageSize = 512
)

// reloadEvent is the message broadcast to editor clients after a site
// regenerates.
type reloadEvent struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *ReloadHub
}

// ReloadHub fans generation events out to connected websocket clients
// so open editors can refresh their preview.
type ReloadHub struct {
	logger  logging.Logger
	metrics *metrics.Metrics

	register   chan *reloadClient
	unregister chan *websocket.Conn
	broadcast  chan []byte

	mu      sync.RWMutex
	clients map[*websocket.Conn]*reloadClient
}

// NewReloadHub creates a hub; Run must be started before Accept is
// served.
func NewReloadHub(logger logging.Logger, m *metrics.Metrics) *ReloadHub {
	return &ReloadHub{
		logger:     logger.WithComponent("reload_hub"),
		metrics:    m,
		register:   make(chan *reloadClient),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
		clients:    make(map[*websocket.Conn]*reloadClient),
	}
}

// SiteGenerated implements site.Notifier: it queues a reload event for
// every connected client. Never blocks the generation path.
func (h *ReloadHub) SiteGenerated(projectID string) {
	payload, err := json.Marshal(reloadEvent{Type: "reload", ProjectID: projectID})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Broadcast queue full; clients reconnect and refetch anyway.
	}
}

// Run owns the client set. It exits when ctx is cancelled, closing
// every connection.
func (h *ReloadHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn, client := range h.clients {
				delete(h.clients, conn)
				close(client.send)
				conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.ReloadClientsConnected.Set(float64(total))
			}
			h.logger.Debug(ctx, "reload client connected", "total", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(client.send)
				conn.Close(websocket.StatusNormalClosure, "")
			}
			total := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.ReloadClientsConnected.Set(float64(total))
			}
			h.logger.Debug(ctx, "reload client disconnected", "total", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			var stalled []*websocket.Conn
			for conn, client := range h.clients {
				select {
				case client.send <- message:
				default:
					stalled = append(stalled, conn)
				}
			}
			h.mu.RUnlock()

			// Drop clients that cannot keep up, outside the read lock.
			for _, conn := range stalled {
				select {
				case h.unregister <- conn:
				default:
				}
			}
		}
	}
}

// Accept upgrades the request and registers the client with the hub.
func (h *ReloadHub) Accept(allowedOrigins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: allowedOrigins,
		})
		if err != nil {
			h.logger.Warn(r.Context(), err, "websocket upgrade failed")
			return
		}

		client := &reloadClient{
			conn: conn,
			send: make(chan []byte, 16),
			hub:  h,
		}

		go client.writePump()
		go client.readPump()

		h.register <- client
	}
}

// readPump drains the connection; clients are listen-only, so any read
// result besides a control frame ends the session.
func (c *reloadClient) readPump() {
	defer func() {
		c.hub.unregister <- c.conn
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
	}
}

// writePump forwards queued events and keeps the connection alive with
// pings.
func (c *reloadClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
