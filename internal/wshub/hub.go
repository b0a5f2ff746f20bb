package wshub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"quizroom/internal/events"
)

const writeTimeout = 10 * time.Second

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Hub tracks every connection and the room group each one is subscribed to.
// All sends are non-blocking: a client whose buffer is full misses the frame.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ConnID] = c
}

// Unregister removes a client from the hub and every group, then closes its
// Send channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for room, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, room)
		}
	}
	delete(h.clients, connID)
	close(c.Send)
}

func (h *Hub) Subscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[room]
	if !ok {
		members = make(map[string]struct{})
		h.groups[room] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Unsubscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, room)
		}
	}
}

// Members returns the number of connections subscribed to room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[room])
}

// Send delivers a frame to one connection.
func (h *Hub) Send(connID string, msg events.Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WSHub] Marshal error: %v\n", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		deliver(c, data)
	}
}

// Broadcast delivers a frame to every connection subscribed to room.
func (h *Hub) Broadcast(room string, msg events.Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WSHub] Marshal error: %v\n", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[room] {
		if c, ok := h.clients[id]; ok {
			deliver(c, data)
		}
	}
}

func deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		log.Printf("[WSHub] Send buffer full for %s, dropping frame\n", c.ConnID)
	}
}
