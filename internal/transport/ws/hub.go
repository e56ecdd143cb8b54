package ws

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// Hub manages all active WebSocket clients and routes events to chat
// subscribers.
type Hub struct {
	// clients maps connection id → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	chatID string
	data   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.connID] = client
			log.Printf("ws hub: client %s connected (%d total)", client.connID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client.connID]; ok {
				delete(h.clients, client.connID)
				close(client.done)
				log.Printf("ws hub: client %s disconnected (%d total)", client.connID, len(h.clients))
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				// Only send to clients subscribed to this chat
				if !client.IsSubscribed(msg.chatID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect. Only done is
					// closed; send stays open so the client's own
					// goroutines can never hit a closed channel.
					delete(h.clients, client.connID)
					close(client.done)
				}
			}
		}
	}
}

// BroadcastToChat sends an event to all subscribers of a chat. Delivery is
// best-effort: marshal failures are logged and dropped, never surfaced.
func (h *Hub) BroadcastToChat(chatID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	select {
	case h.broadcast <- &broadcastMsg{chatID: chatID, data: data}:
	default:
		log.Printf("ws hub: broadcast buffer full, dropping %s event for chat %s", event.Type, chatID)
	}
}
