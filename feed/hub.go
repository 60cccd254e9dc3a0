package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// AdminRoom is the room every admin dashboard connection joins.
const AdminRoom = "admin"

const (
	EventTeamRegistered    = "team.registered"
	EventTeamStatusChanged = "team.status_changed"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	RoomID  string `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	isClosed bool
	mu       sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), Room: room}
}

// closeSend закрывает канал ровно один раз.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	done       chan struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx, затем закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					client.closeSend()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("Feed client registered", slog.String("room", client.Room), slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok && clients[client] {
				client.closeSend()
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.rooms, client.Room)
				}
				h.logger.Debug("Feed client unregistered", slog.String("room", client.Room), slog.Int("clients", len(clients)))
			}
			h.mu.Unlock()
		}
	}
}

// Join registers a client unless the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom отправляет сообщение всем клиентам комнаты; медленные клиенты пропускаются.
func (h *Hub) BroadcastToRoom(roomID string, message Message) {
	message.RoomID = roomID
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal feed message", slog.String("room", roomID), slog.String("type", message.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		if !client.trySend(messageBytes) {
			h.logger.Warn("Feed client send buffer full, skipping", slog.String("room", roomID))
		}
	}
}

// Publish sends an event to the admin room.
func (h *Hub) Publish(eventType string, payload any) {
	h.BroadcastToRoom(AdminRoom, Message{Type: eventType, Payload: payload})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		// Входящие сообщения игнорируются, читаем только ради control frames.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Feed client closed unexpectedly", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
