package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection. Connections are
// anonymous viewers identified only by a random connection id.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	connID uuid.UUID

	// subscribedChats tracks which chats this client listens to.
	subscribedChats map[string]struct{}
	mu              sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, connID uuid.UUID) *Client {
	return &Client{
		hub:             hub,
		conn:            conn,
		connID:          connID,
		subscribedChats: make(map[string]struct{}),
		send:            make(chan []byte, sendBufSize),
		done:            make(chan struct{}),
	}
}

// IsSubscribed checks if this client is subscribed to a chat.
func (c *Client) IsSubscribed(chatID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribedChats[chatID]
	return ok
}

// Subscribe adds a chat subscription.
func (c *Client) Subscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedChats[chatID] = struct{}{}
}

// Unsubscribe removes a chat subscription.
func (c *Client) Unsubscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedChats, chatID)
}

// ReadPump reads messages from the WebSocket and routes them to the Hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.connID)
			} else {
				log.Printf("ws: read error from %s: %v", c.connID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.connID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeChatSubscribe:
		var p ChatPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChatID == "" {
			c.sendError("INVALID_PAYLOAD", "invalid chat_subscribe payload")
			return
		}
		c.Subscribe(p.ChatID)
		log.Printf("ws: %s subscribed to chat %s", c.connID, p.ChatID)

	case EventTypeChatUnsubscribe:
		var p ChatPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChatID == "" {
			c.sendError("INVALID_PAYLOAD", "invalid chat_unsubscribe payload")
			return
		}
		c.Unsubscribe(p.ChatID)
		log.Printf("ws: %s unsubscribed from chat %s", c.connID, p.ChatID)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	c.trySend(data)
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, "", ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues data for the write pump, dropping it if the client is
// already shutting down or its buffer is full.
func (c *Client) trySend(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
	}
}
