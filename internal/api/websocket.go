package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/logging"
)

// Frame types on the admin event feed.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameAck         = "ack"
	FrameError       = "error"

	// AllChannels subscribes to every event type.
	AllChannels = "*"

	// feedQueueSize is the per-client outbound frame buffer.
	feedQueueSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// Frame is one JSON message on the event feed, in either direction.
//
// Clients send subscribe/unsubscribe frames listing Channels and ping
// frames; the bridge answers with ack, pong or error frames carrying the
// same ID, and pushes event frames with the relay event in Data.
type Frame struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channel  string   `json:"channel,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Time     string   `json:"time,omitempty"`
	Data     any      `json:"data,omitempty"`
}

// Hub fans relay events out to websocket clients by channel. Channels are
// event type names (see events.Types) or AllChannels.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}

	dropped atomic.Uint64
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*feedClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (h *Hub) register(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event feed client connected", "clients", n)
}

// unregister is safe to call more than once for the same client.
func (h *Hub) unregister(c *feedClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Debug("event feed client disconnected", "clients", n)
	}
}

// Broadcast queues an event frame for every client subscribed to channel.
// A client whose queue is full misses the frame; see Dropped.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeFrame(Frame{Type: FrameEvent, Channel: channel, Data: payload})
	if err != nil {
		h.logger.Error("encoding event frame failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(channel) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many event frames were lost to full client queues.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// feedTimings returns the ping interval and pong timeout, with defaults
// for unset values.
func feedTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping, pong = defaultPingInterval, defaultPongTimeout
	if cfg.PingInterval > 0 {
		ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return ping, pong
}

// upgrader accepts any origin; the admin listener binds to loopback by default.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the request to an event feed. A new client
// receives nothing until it subscribes.
func (a *AdminServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newFeedClient(a.hub, conn)
	a.hub.register(c)

	ping, pong := feedTimings(a.cfg.WebSocket)
	go c.writeLoop(ping, pong)
	go c.readLoop(int64(a.cfg.WebSocket.MaxMessageSize), ping+pong)
}

// feedClient is one websocket connection on the event feed.
type feedClient struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	closed   bool
}

func newFeedClient(h *Hub, conn *websocket.Conn) *feedClient {
	return &feedClient{
		hub:      h,
		conn:     conn,
		out:      make(chan []byte, feedQueueSize),
		channels: make(map[string]struct{}),
	}
}

// enqueue reports false when the frame could not be queued.
func (c *feedClient) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

// close ends the write loop. Idempotent.
func (c *feedClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

func (c *feedClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[AllChannels]; ok {
		return true
	}
	_, ok := c.channels[channel]
	return ok
}

// subscribe adds channels. Nothing is added if any channel is unknown.
func (c *feedClient) subscribe(channels []string) error {
	if len(channels) == 0 {
		return errors.New("no channels given")
	}
	for _, ch := range channels {
		if !knownChannel(ch) {
			return fmt.Errorf("unknown channel %q", ch)
		}
	}

	c.mu.Lock()
	for _, ch := range channels {
		c.channels[ch] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

func (c *feedClient) unsubscribe(channels []string) {
	c.mu.Lock()
	for _, ch := range channels {
		delete(c.channels, ch)
	}
	c.mu.Unlock()
}

// subscriptions returns the current channels, sorted.
func (c *feedClient) subscriptions() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}

func knownChannel(ch string) bool {
	if ch == AllChannels {
		return true
	}
	for _, t := range events.Types() {
		if string(t) == ch {
			return true
		}
	}
	return false
}

func (c *feedClient) readLoop(limit int64, keepalive time.Duration) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	if limit > 0 {
		c.conn.SetReadLimit(limit)
	}
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(keepalive))
	}
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("event feed read error", "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any frame counts as alive.
		_ = extend()
		c.handleFrame(data)
	}
}

func (c *feedClient) writeLoop(ping, writeWait time.Duration) {
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func (c *feedClient) handleFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.reply(Frame{Type: FrameError, Data: errorData("invalid JSON frame")})
		return
	}

	switch f.Type {
	case FrameSubscribe:
		if err := c.subscribe(f.Channels); err != nil {
			c.reply(Frame{Type: FrameError, ID: f.ID, Data: errorData(err.Error())})
			return
		}
		c.hub.logger.Debug("event feed subscribed", "channels", f.Channels)
		c.reply(Frame{Type: FrameAck, ID: f.ID, Channels: c.subscriptions()})
	case FrameUnsubscribe:
		c.unsubscribe(f.Channels)
		c.reply(Frame{Type: FrameAck, ID: f.ID, Channels: c.subscriptions()})
	case FramePing:
		c.reply(Frame{Type: FramePong, ID: f.ID})
	default:
		c.reply(Frame{Type: FrameError, ID: f.ID, Data: errorData("unknown frame type: " + f.Type)})
	}
}

func (c *feedClient) reply(f Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func errorData(msg string) map[string]string {
	return map[string]string{"message": msg}
}

// encodeFrame stamps f with the current time and marshals it.
func encodeFrame(f Frame) ([]byte, error) {
	f.Time = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(f)
}
