package ws

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket. Connections
// are unauthenticated; clients pick the chats they follow by sending
// chat.subscribe events.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			log.Printf("ws: accept error: %v", err)
			return
		}

		client := NewClient(hub, conn, uuid.New())
		hub.register <- client

		// Start read/write pumps in goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}
