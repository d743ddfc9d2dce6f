package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gsi-service/logger"
)

// OverlayMessage 推送给覆盖层客户端的消息结构
type OverlayMessage struct {
	Type      string      `json:"type"`
	Token     string      `json:"token,omitempty"`
	Event     string      `json:"event,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// Client 覆盖层 WebSocket 客户端
// 通过 {"type":"join","token":...} 加入某个会话的逻辑房间,
// 之后只收到该 token 的事件
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	token string
	mu    sync.RWMutex
}

// Hub 覆盖层 WebSocket Hub, 按 token 维护逻辑房间
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	publish    chan *OverlayMessage
	mu         sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *OverlayMessage, 256),
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Printf("[Hub] Client registered. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeFromRoom(client)
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Printf("[Hub] Client unregistered. Total clients: %d", len(h.clients))

		case message := <-h.publish:
			h.deliver(message)
		}
	}
}

// Publish 实现 services.Broadcaster 接口
// 满载时丢弃而不是阻塞: 覆盖层展示是尽力而为
func (h *Hub) Publish(token, event string, payload interface{}) {
	msg := &OverlayMessage{
		Type:      "event",
		Token:     token,
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.publish <- msg:
	default:
		logger.Errorf("[Hub] Publish channel full, dropping %s for %s", event, token)
	}
}

// deliver 把消息投递到目标房间的所有客户端
func (h *Hub) deliver(message *OverlayMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("[Hub] Failed to marshal message: %v", err)
		return
	}

	h.mu.RLock()
	room := h.rooms[message.Token]
	var slow []*Client
	for client := range room {
		select {
		case client.send <- data:
		default:
			// 客户端太慢, 断开
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, client := range slow {
			if _, ok := h.clients[client]; ok {
				h.removeFromRoom(client)
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
	}
}

// joinRoom 把客户端加入 token 房间 (先退出旧房间)
func (h *Hub) joinRoom(client *Client, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client)

	client.mu.Lock()
	client.token = token
	client.mu.Unlock()

	if h.rooms[token] == nil {
		h.rooms[token] = make(map[*Client]bool)
	}
	h.rooms[token][client] = true

	logger.Printf("[Hub] Client joined room %s (%d clients in room)", token, len(h.rooms[token]))
}

// removeFromRoom 把客户端从当前房间摘除, 调用方持有 h.mu
func (h *Hub) removeFromRoom(client *Client) {
	client.mu.RLock()
	token := client.token
	client.mu.RUnlock()

	if token == "" {
		return
	}
	if room, ok := h.rooms[token]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, token)
		}
	}
}

// RoomSize 指定房间的客户端数量
func (h *Hub) RoomSize(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[token])
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("[Hub] WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage 处理客户端发送的消息 (加入/离开房间)
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Errorf("[Hub] Failed to unmarshal client message: %v", err)
		return
	}

	switch msg.Type {
	case "join":
		if msg.Token != "" {
			c.hub.joinRoom(c, msg.Token)
		}
	case "leave":
		c.hub.mu.Lock()
		c.hub.removeFromRoom(c)
		c.hub.mu.Unlock()

		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
}
