package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Delivery statuses a message moves through.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// ValidStatus reports whether s is a known delivery status.
func ValidStatus(s string) bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// StatusEntry is one step in a message's delivery history.
type StatusEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is the canonical stored unit. Status always equals the status of
// the last StatusHistory entry; the history only ever grows.
type Message struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  *string   `json:"external_id,omitempty"` // source-assigned message id
	AltID       *string   `json:"alt_id,omitempty"`      // alternate id used by status payloads
	ChatID      string    `json:"chat_id"`
	ContactName *string   `json:"contact_name,omitempty"`
	Sender      *string   `json:"sender,omitempty"`
	Recipient   *string   `json:"recipient,omitempty"`
	Type        string    `json:"type"`
	Body        string    `json:"body"`
	// Payload keeps the original source fragment for debugging.
	Payload       json.RawMessage `json:"payload,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Status        string          `json:"status"`
	StatusHistory []StatusEntry   `json:"status_history"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ChatSummary is one chat-list entry: the chat plus a preview of its most
// recent message.
type ChatSummary struct {
	ChatID        string    `json:"chat_id"`
	LastMessageAt time.Time `json:"last_message_at"`
	LastBody      string    `json:"last_body"`
	LastStatus    string    `json:"last_status"`
	ContactName   *string   `json:"contact_name,omitempty"`
}
