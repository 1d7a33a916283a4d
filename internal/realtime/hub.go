package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/config"
)

// Hub is the presence registry: it maps user ids to the set of live
// connections currently registered to them. It is mutated only by connection
// lifecycle events (attach, register, unregister, detach) — the dispatch path
// only reads it.
type Hub struct {
	mu sync.RWMutex

	// connections tracks every attached client and the user id it is
	// registered to ("" while anonymous).
	connections map[*Client]string

	// users indexes registered clients by user id. A user with no entry, or
	// an empty set, is offline.
	users map[string]map[*Client]bool

	cfg    config.RealtimeConfig
	logger zerolog.Logger
}

func NewHub(cfg config.RealtimeConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[*Client]string),
		users:       make(map[string]map[*Client]bool),
		cfg:         cfg,
		logger:      logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// attach admits a freshly upgraded connection in the anonymous state.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = ""
}

// register associates the connection with a user. Re-announcing a different
// identity drops the old association first, so a connection counts toward at
// most one user's presence.
func (h *Hub) register(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c]; !ok {
		return
	}
	h.removeFromUserLocked(c)
	h.connections[c] = userID
	set, ok := h.users[userID]
	if !ok {
		set = make(map[*Client]bool)
		h.users[userID] = set
	}
	set[c] = true

	h.logger.Debug().Str("user_id", userID).Str("connection_id", c.id).Msg("connection registered")
}

// unregister returns the connection to the anonymous state without closing it.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c]; !ok {
		return
	}
	h.removeFromUserLocked(c)
	h.connections[c] = ""
}

// detach removes the connection entirely, on transport close.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c]; !ok {
		return
	}
	h.removeFromUserLocked(c)
	delete(h.connections, c)
}

func (h *Hub) removeFromUserLocked(c *Client) {
	userID := h.connections[c]
	if userID == "" {
		return
	}
	if set, ok := h.users[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, userID)
		}
	}
}

// IsOnline derives presence from live connection state on every call.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// ConnectionCount returns the number of live connections registered to a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// SendToUser fans a message out to every connection registered to the user,
// and only those. Clients whose send buffer is full are evicted rather than
// waited on.
func (h *Hub) SendToUser(userID string, msg ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal push payload")
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().Str("user_id", userID).Str("connection_id", c.id).Msg("send buffer full, evicting connection")
			c.evict()
		}
	}
	return nil
}

// ServerMessage is a server-to-client frame on the delivery channel.
type ServerMessage struct {
	Type         string      `json:"type"`
	ConnectionID string      `json:"connection_id,omitempty"`
	UserID       string      `json:"user_id,omitempty"`
	ServerTime   *time.Time  `json:"server_time,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// ClientMessage is a client-to-server frame on the delivery channel.
type ClientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

const (
	msgTypeConnected       = "connected"
	msgTypeRegistered      = "registered"
	msgTypePong            = "pong"
	msgTypeNewNotification = "new_notification"

	msgTypeRegister   = "register"
	msgTypeUnregister = "unregister"
	msgTypePing       = "ping"
)
