package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one live websocket connection. Identity is announced after the
// handshake with a register frame; a connection that never announces stays
// anonymous and counts toward no user's presence.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.cfg.SendBufferSize),
	}
}

// evict drops the connection without waiting for the peer.
func (c *Client) evict() {
	c.closeOnce.Do(func() {
		c.hub.detach(c)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.evict()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Str("connection_id", c.id).Msg("websocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug().Err(err).Str("connection_id", c.id).Msg("discarding malformed frame")
			continue
		}

		switch msg.Type {
		case msgTypeRegister:
			if msg.UserID == "" {
				continue
			}
			c.hub.register(c, msg.UserID)
			c.enqueue(ServerMessage{Type: msgTypeRegistered, UserID: msg.UserID})
		case msgTypeUnregister:
			c.hub.unregister(c)
		case msgTypePing:
			c.enqueue(ServerMessage{Type: msgTypePong})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.evict()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.evict()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket connection and attaches it
// to the hub in the anonymous state.
func ServeWS(hub *Hub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(hub, conn)
		hub.attach(client)

		now := time.Now().UTC()
		client.enqueue(ServerMessage{
			Type:         msgTypeConnected,
			ConnectionID: client.id,
			ServerTime:   &now,
		})

		go client.writePump()
		go client.readPump()
	}
}
