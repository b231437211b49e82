package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/logger"
	"github.com/gethomeport/resmon/internal/monitor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Daemon listens on loopback by default
	},
}

// StreamMessage is one frame on the /api/ws stream.
type StreamMessage struct {
	Type string      `json:"type"` // "snapshot", "alert", "error"
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans monitor output out to websocket clients. It is a monitor
// Subscriber; a client that cannot keep up is dropped rather than slowing
// the sampling loop.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	log        logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("ws: client registered", "total_clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("ws: client unregistered", "total_clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					h.log.Warn("ws: dropping slow client", "total_clients", len(h.clients))
				}
			}
		}
	}
}

func (h *Hub) OnSnapshot(s monitor.Snapshot) {
	h.publish("snapshot", s)
}

func (h *Hub) OnAlert(ev alert.Event) {
	h.publish("alert", ev)
}

func (h *Hub) OnError(err error) {
	h.publish("error", err.Error())
}

func (h *Hub) publish(msgType string, data interface{}) {
	msg, err := encodeMessage(msgType, data)
	if err != nil {
		h.log.Error("ws: encode failed", "type", msgType, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.log.Debug("ws: broadcast queue full, message dropped", "type", msgType)
	}
}

func encodeMessage(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: msgType, Data: data})
}

// handleStream upgrades to a websocket and streams snapshots and alerts.
// The latest snapshot, if any, is sent first.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws: upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if snap, err := s.monitor.Latest(); err == nil {
		if msg, err := encodeMessage("snapshot", snap); err == nil {
			c.send <- msg
		}
	}

	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump(s.hub)
}

// readPump discards client frames and notices disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
