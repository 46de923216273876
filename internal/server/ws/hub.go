// Package ws streams conversion events from the signal bus to WebSocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// envelope is the frame every message to a client is wrapped in.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// watchMsg is sent by a client to narrow the events it receives to
// conversions touching the listed assets. An empty list means all.
type watchMsg struct {
	Action string             `json:"action"`
	Assets []domain.AssetCode `json:"assets"`
}

// eventAssets is the part of a conversion event the hub filters on.
type eventAssets struct {
	From domain.AssetCode `json:"from"`
	To   domain.AssetCode `json:"to"`
}

type event struct {
	assets eventAssets
	frame  []byte
}

// Hub fans conversion events out to connected clients.
type Hub struct {
	bus        domain.SignalBus
	channel    string
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	events     chan event
	done       chan struct{}
	startedAt  time.Time
	logger     *slog.Logger
}

// NewHub creates a Hub relaying the given bus channel.
func NewHub(bus domain.SignalBus, channel string, logger *slog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		channel:    channel,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan event, 256),
		done:       make(chan struct{}),
		startedAt:  time.Now().UTC(),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run subscribes to the bus and serves clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	msgs, err := h.bus.Subscribe(ctx, h.channel)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "ws: subscribed", slog.String("channel", h.channel))

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("ws: client connected", slog.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Debug("ws: client disconnected", slog.Int("clients", len(h.clients)))

		case payload, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: subscription closed", slog.String("channel", h.channel))
				msgs = nil
				continue
			}
			ev, err := decodeEvent(payload)
			if err != nil {
				h.logger.Warn("ws: dropping malformed event", slog.String("error", err.Error()))
				continue
			}
			for c := range h.clients {
				if !c.wants(ev.assets) {
					continue
				}
				select {
				case c.send <- ev.frame:
				default:
					h.logger.Warn("ws: dropping event for slow client")
				}
			}
		}
	}
}

func decodeEvent(payload []byte) (event, error) {
	var a eventAssets
	if err := json.Unmarshal(payload, &a); err != nil {
		return event{}, err
	}
	frame, err := json.Marshal(envelope{Type: "conversion", Payload: payload})
	if err != nil {
		return event{}, err
	}
	return event{assets: a, frame: frame}, nil
}

// HandleWS upgrades the request and attaches the connection to the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	if !h.attach(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// attach queues the hello frame and registers c. Once registered, c.send
// belongs to Run and may be closed at any time. It reports false when the
// hub has stopped.
func (h *Hub) attach(c *client) bool {
	c.sendHello()
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	watch map[domain.AssetCode]struct{}
}

func (c *client) wants(a eventAssets) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watch) == 0 {
		return true
	}
	_, from := c.watch[a.From]
	_, to := c.watch[a.To]
	return from || to
}

func (c *client) setWatch(assets []domain.AssetCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watch = make(map[domain.AssetCode]struct{}, len(assets))
	for _, a := range assets {
		c.watch[a] = struct{}{}
	}
}

func (c *client) sendHello() {
	payload, err := json.Marshal(map[string]any{
		"channel":        c.hub.channel,
		"uptime_seconds": max(int64(time.Since(c.hub.startedAt).Seconds()), 0),
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(envelope{Type: "hello", Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var msg watchMsg
		if err := json.Unmarshal(message, &msg); err == nil && msg.Action == "watch" {
			c.setWatch(msg.Assets)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
