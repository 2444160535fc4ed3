package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/manager"
	"github.com/adamnnoli/monopoly/internal/game/models"
)

// Message types exchanged with renderers
const (
	MessageSnapshot    = "snapshot"
	MessageLog         = "log"
	MessageError       = "error"
	MessageCommand     = "command"
	MessageGetSnapshot = "get_snapshot"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// GameService is the part of the session manager the hub talks to
type GameService interface {
	Snapshot(gameID string) (models.GameSnapshot, error)
	Execute(gameID string, cmd manager.Command) ([]models.LogEntry, error)
}

// Message is the envelope for everything sent over a renderer connection
type Message struct {
	Type     string               `json:"type"`
	GameID   string               `json:"gameId,omitempty"`
	Entries  []models.LogEntry    `json:"entries,omitempty"`
	Snapshot *models.GameSnapshot `json:"snapshot,omitempty"`
	Command  *manager.Command     `json:"command,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Hub maintains the set of renderer connections per game and pushes every
// log batch the session manager produces to them
type Hub struct {
	games GameService

	// Registered clients by gameID -> clientID -> client
	clients      map[string]map[string]*Client
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	validate *validator.Validate
	ctx      context.Context
	logger   *zap.SugaredLogger
}

// BroadcastMessage is a queued outbound frame. A non-nil client restricts it
// to that one connection.
type BroadcastMessage struct {
	gameID string
	data   []byte
	client *Client
}

// Client represents one renderer connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id     string
	gameID string

	lastPongTime time.Time
	pongMutex    sync.RWMutex

	connectedAt time.Time
}

// NewHub creates a new WebSocket hub. Run must be started for it to deliver anything.
func NewHub(ctx context.Context, games GameService, logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		games:      games,
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		broadcast:  make(chan *BroadcastMessage, 1024),
		validate:   validator.New(),
		ctx:        ctx,
		logger:     logger,
	}
}

// Run owns client registration and delivery until the hub's context ends
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			h.deliver(client, h.snapshotMessage(client.gameID))

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			if msg.client != nil {
				h.deliver(msg.client, msg.data)
				continue
			}
			h.clientsMutex.RLock()
			targets := make([]*Client, 0, len(h.clients[msg.gameID]))
			for _, client := range h.clients[msg.gameID] {
				targets = append(targets, client)
			}
			h.clientsMutex.RUnlock()
			for _, client := range targets {
				h.deliver(client, msg.data)
			}

		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if _, ok := h.clients[client.gameID]; !ok {
		h.clients[client.gameID] = make(map[string]*Client)
	}
	h.clients[client.gameID][client.id] = client
	h.logger.Infof("Client %s joined game %s (%d connected)", client.id, client.gameID, len(h.clients[client.gameID]))
}

func (h *Hub) removeClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	gameClients, ok := h.clients[client.gameID]
	if !ok || gameClients[client.id] != client {
		return
	}
	delete(gameClients, client.id)
	if len(gameClients) == 0 {
		delete(h.clients, client.gameID)
	}
	close(client.send)
	h.logger.Infof("Client %s left game %s after %s", client.id, client.gameID, time.Since(client.connectedAt).Round(time.Second))
}

// deliver queues data on a client. A client that cannot keep up is dropped.
func (h *Hub) deliver(client *Client, data []byte) {
	if data == nil {
		return
	}
	h.clientsMutex.RLock()
	registered := h.clients[client.gameID][client.id] == client
	h.clientsMutex.RUnlock()
	if !registered {
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warnf("Send buffer full for client %s in game %s, dropping connection", client.id, client.gameID)
		h.removeClient(client)
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for gameID, gameClients := range h.clients {
		for _, client := range gameClients {
			close(client.send)
		}
		delete(h.clients, gameID)
	}
}

// Publish pushes a log batch and the resulting snapshot to every renderer of the game
func (h *Hub) Publish(ctx context.Context, gameID string, entries []models.LogEntry) error {
	msg := Message{Type: MessageLog, GameID: gameID, Entries: entries}
	if snapshot, err := h.games.Snapshot(gameID); err == nil {
		msg.Snapshot = &snapshot
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal log batch: %w", err)
	}

	select {
	case h.broadcast <- &BroadcastMessage{gameID: gameID, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return errors.New("websocket hub stopped")
	}
}

// ClientCount returns the number of renderers connected to a game
func (h *Hub) ClientCount(gameID string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients[strings.ToLower(gameID)])
}

// CheckInactiveClients closes connections that have not answered a ping within maxIdle
func (h *Hub) CheckInactiveClients(maxIdle time.Duration) int {
	h.clientsMutex.RLock()
	var stale []*Client
	for _, gameClients := range h.clients {
		for _, client := range gameClients {
			if !client.isActive(maxIdle) {
				stale = append(stale, client)
			}
		}
	}
	h.clientsMutex.RUnlock()

	for _, client := range stale {
		h.logger.Infof("Closing inactive client %s in game %s", client.id, client.gameID)
		client.conn.Close()
	}
	return len(stale)
}

// HandleWebSocketConnection attaches an upgraded connection to a game. An
// empty clientID gets a generated one.
func (h *Hub) HandleWebSocketConnection(conn *websocket.Conn, gameID, clientID string) {
	if clientID == "" {
		clientID = uuid.New().String()
	}
	client := &Client{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		id:           clientID,
		gameID:       strings.ToLower(gameID),
		lastPongTime: time.Now(),
		connectedAt:  time.Now(),
	}

	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (h *Hub) snapshotMessage(gameID string) []byte {
	snapshot, err := h.games.Snapshot(gameID)
	if err != nil {
		return h.errorMessage(gameID, err)
	}
	data, err := json.Marshal(Message{Type: MessageSnapshot, GameID: gameID, Snapshot: &snapshot})
	if err != nil {
		h.logger.Errorf("Failed to marshal snapshot for game %s: %v", gameID, err)
		return nil
	}
	return data
}

func (h *Hub) errorMessage(gameID string, err error) []byte {
	data, _ := json.Marshal(Message{Type: MessageError, GameID: gameID, Error: err.Error()})
	return data
}

func (h *Hub) sendTo(client *Client, data []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{gameID: client.gameID, data: data, client: client}:
	case <-h.ctx.Done():
	}
}

// isActive checks if the client has answered a ping within the given duration
func (c *Client) isActive(duration time.Duration) bool {
	c.pongMutex.RLock()
	defer c.pongMutex.RUnlock()
	return time.Since(c.lastPongTime) <= duration
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.pongMutex.Lock()
		c.lastPongTime = time.Now()
		c.pongMutex.Unlock()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnf("WebSocket read error for game %s, client %s: %v", c.gameID, c.id, err)
			}
			return
		}
		c.handleMessage(message)
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Errorf("Error writing to game %s, client %s: %v", c.gameID, c.id, err)
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

// handleMessage processes one inbound frame. Commands run through the session
// manager; their log batch reaches every renderer via Publish.
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.sendTo(c, c.hub.errorMessage(c.gameID, fmt.Errorf("invalid message: %w", err)))
		return
	}

	switch msg.Type {
	case MessageGetSnapshot:
		c.hub.sendTo(c, c.hub.snapshotMessage(c.gameID))

	case MessageCommand:
		if msg.Command == nil {
			c.hub.sendTo(c, c.hub.errorMessage(c.gameID, errors.New("command message without command")))
			return
		}
		if err := c.hub.validate.Struct(msg.Command); err != nil {
			c.hub.sendTo(c, c.hub.errorMessage(c.gameID, err))
			return
		}
		if _, err := c.hub.games.Execute(c.gameID, *msg.Command); err != nil {
			c.hub.logger.Warnf("Command %s from client %s failed: %v", msg.Command.Type, c.id, err)
			c.hub.sendTo(c, c.hub.errorMessage(c.gameID, err))
		}

	default:
		c.hub.sendTo(c, c.hub.errorMessage(c.gameID, fmt.Errorf("unknown message type %q", msg.Type)))
	}
}
