package ws

import (
	"log"

	"github.com/chatflow/chatflow/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, msg.ChatID, MessagePayload{Message: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(msg.ChatID, evt)
}

func (n *HubNotifier) NotifyStatusUpdate(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageStatus, msg.ChatID, MessagePayload{Message: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(msg.ChatID, evt)
}
