// internal/server/handlers/live.go

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
	"freedomwall/internal/monitoring"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outgoing frames buffered per client before events are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     64,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame types exchanged on the live feed
const (
	frameWelcome  = "welcome"
	frameMessage  = "message"
	frameViewport = "viewport"
)

type liveFrame struct {
	Type     string           `json:"type"`
	Viewport *viewport        `json:"viewport,omitempty"`
	Message  *message.Message `json:"message,omitempty"`
}

type viewport struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
}

// viewportFrame moves a client's area of interest. Either radius or both
// corners of the visible bounds may be given.
type viewportFrame struct {
	Type   string     `json:"type"`
	Lat    float64    `json:"lat"`
	Lng    float64    `json:"lng"`
	Radius *float64   `json:"radius"`
	NE     *geo.Point `json:"ne"`
	SW     *geo.Point `json:"sw"`
}

// LiveHandler streams newly posted messages near a point over WebSocket
type LiveHandler struct {
	subscriber    message.Subscriber
	logger        logging.Logger
	metrics       *monitoring.MetricsCollector
	config        WebSocketConfig
	defaultRadius float64
}

// NewLiveHandler creates a live feed handler. defaultRadius applies when the
// client does not send one.
func NewLiveHandler(
	subscriber message.Subscriber,
	logger logging.Logger,
	metrics *monitoring.MetricsCollector,
	config WebSocketConfig,
	defaultRadius float64,
) *LiveHandler {
	return &LiveHandler{
		subscriber:    subscriber,
		logger:        logger,
		metrics:       metrics,
		config:        config,
		defaultRadius: defaultRadius,
	}
}

// liveClient represents a connected WebSocket client
type liveClient struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	config  WebSocketConfig
	logger  logging.Logger
	metrics *monitoring.MetricsCollector

	mu     sync.RWMutex
	center geo.Point
	radius float64

	cancel    func()
	closeOnce sync.Once
}

// ServeHTTP upgrades the connection and subscribes it to created events
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	center := geo.Point{Lat: queryFloat(r, "lat"), Lng: queryFloat(r, "lng")}
	radius := queryFloatOr(r, "radius", h.defaultRadius)
	if radius < 0 {
		radius = 0
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("failed to upgrade live feed")
		return
	}

	client := &liveClient{
		conn:    conn,
		send:    make(chan []byte, h.config.SendBuffer),
		done:    make(chan struct{}),
		config:  h.config,
		logger:  h.logger.WithField("remote", r.RemoteAddr),
		metrics: h.metrics,
		center:  center,
		radius:  radius,
	}

	cancel, err := h.subscriber.Subscribe(client.deliver)
	if err != nil {
		h.logger.WithError(err).Error("failed to subscribe live feed")
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "live feed unavailable"),
			time.Now().Add(h.config.WriteWait),
		)
		conn.Close()
		return
	}
	client.cancel = cancel
	h.metrics.LiveClientConnected()

	client.queue(liveFrame{
		Type:     frameWelcome,
		Viewport: &viewport{Lat: center.Lat, Lng: center.Lng, Radius: radius},
	})

	client.logger.WithFields(logrus.Fields{
		"lat":    center.Lat,
		"lng":    center.Lng,
		"radius": radius,
	}).Debug("live feed connected")

	go client.writePump()
	go client.readPump()
}

// deliver forwards an event if it falls inside the client's area
func (c *liveClient) deliver(event message.Event) {
	if event.Type != message.EventCreated {
		return
	}

	c.mu.RLock()
	center, radius := c.center, c.radius
	c.mu.RUnlock()

	if !geo.Within(center, event.Message.Position, radius) {
		return
	}

	m := event.Message
	c.queue(liveFrame{Type: frameMessage, Message: &m})
}

// queue encodes a frame for the write pump, dropping it if the client is
// too slow
func (c *liveClient) queue(frame liveFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.WithError(err).Error("encoding live frame")
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.metrics.LiveEventDropped()
	}
}

// readPump reads viewport updates from the client
func (c *liveClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("live feed read error")
			}
			return
		}

		var frame viewportFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != frameViewport {
			c.logger.Debug("ignoring unknown live frame")
			continue
		}
		c.moveViewport(frame)
	}
}

func (c *liveClient) moveViewport(frame viewportFrame) {
	center := geo.NewPoint(frame.Lat, frame.Lng)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.center = center
	switch {
	case frame.NE != nil && frame.SW != nil:
		c.radius = geo.VisibleRadius(center, *frame.NE, *frame.SW)
	case frame.Radius != nil && *frame.Radius >= 0:
		c.radius = *frame.Radius
	}
}

// writePump pumps queued frames to the WebSocket connection
func (c *liveClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close unsubscribes and closes the connection once
func (c *liveClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		c.conn.Close()
		c.metrics.LiveClientDisconnected()
		c.logger.Debug("live feed closed")
	})
}
