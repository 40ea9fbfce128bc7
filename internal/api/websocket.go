package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 4 * 1024
)

// Message represents a WebSocket message
type Message struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	hub      *Hub
}

// Hub maintains the set of active clients and pushes round updates to them.
// A player may have several connections, one per open tab.
type Hub struct {
	players    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

type delivery struct {
	playerID string
	data     []byte
}

// NewHub creates a new WebSocket hub. Upgrades are accepted from the
// allowed origins only, or from anywhere when none are given.
func NewHub(allowedOrigins []string, logger *log.Logger) *Hub {
	return &Hub{
		players:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// Run services registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.players {
				for client := range clients {
					close(client.send)
				}
			}
			h.players = make(map[string]map[*Client]bool)
			return nil

		case client := <-h.register:
			if h.players[client.playerID] == nil {
				h.players[client.playerID] = make(map[*Client]bool)
			}
			h.players[client.playerID][client] = true
			h.logger.Debug("Client connected", "player", client.playerID, "connections", len(h.players[client.playerID]))

		case client := <-h.unregister:
			h.drop(client)

		case d := <-h.deliver:
			for client := range h.players[d.playerID] {
				select {
				case client.send <- d.data:
				default:
					h.logger.Warn("Dropping slow client", "player", client.playerID)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.players[client.playerID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.players, client.playerID)
	}
	h.logger.Debug("Client disconnected", "player", client.playerID)
}

// SendToPlayer queues a message for every connection of a player.
// It never blocks; the message is dropped when the hub is saturated.
func (h *Hub) SendToPlayer(playerID string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message", "error", err)
		return
	}

	select {
	case h.deliver <- delivery{playerID: playerID, data: data}:
	default:
		h.logger.Warn("Hub saturated, dropping message", "player", playerID, "type", messageType(message))
	}
}

func messageType(message any) string {
	if m, ok := message.(Message); ok {
		return m.Type
	}
	return ""
}

// serveWS upgrades the request and attaches the connection to playerID.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, playerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 16),
		playerID: playerID,
		hub:      h,
	}
	welcome, _ := json.Marshal(Message{
		Type:     "welcome",
		PlayerID: playerID,
		Data:     map[string]string{"message": "Connected to blackjack server"},
	})
	client.send <- welcome

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// readPump keeps the connection alive and detects when the client goes away.
// Clients drive the game over HTTP so inbound messages are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error", "player", c.playerID, "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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
