package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatflow/chatflow/internal/domain"
	"github.com/chatflow/chatflow/internal/metrics"
	"github.com/chatflow/chatflow/internal/repository"
)

var (
	ErrChatIDRequired     = errors.New("chat id is required")
	ErrBodyRequired       = errors.New("message body is required")
	ErrStatusRequired     = errors.New("status is required")
	ErrIdentifierRequired = errors.New("an external or alternate message id is required")
	ErrInvalidStatus      = errors.New("unknown delivery status")
)

// Notifier broadcasts real-time events to connected clients. Delivery is
// best-effort; implementations must never block the write path.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyStatusUpdate(msg *domain.Message)
}

type MessageService struct {
	repo     repository.MessageRepository
	notifier Notifier
	now      func() time.Time
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo, now: time.Now}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ChatID      string  `json:"chat_id"`
	Body        string  `json:"body"`
	Sender      *string `json:"sender,omitempty"`
	Recipient   *string `json:"recipient,omitempty"`
	ContactName *string `json:"contact_name,omitempty"`
}

func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.ChatID) == "" {
		return nil, ErrChatIDRequired
	}
	if input.Body == "" {
		return nil, ErrBodyRequired
	}

	// Chats keep their display name: inherit from the most recent message
	// when the caller omits one.
	name := input.ContactName
	if name == nil || *name == "" {
		last, err := s.repo.LatestByChat(ctx, input.ChatID)
		if err != nil {
			return nil, fmt.Errorf("looking up chat history: %w", err)
		}
		if last != nil {
			name = last.ContactName
		}
	}

	now := s.now()
	msg := &domain.Message{
		ID:            uuid.New(),
		ChatID:        input.ChatID,
		ContactName:   name,
		Sender:        input.Sender,
		Recipient:     input.Recipient,
		Type:          "text",
		Body:          input.Body,
		OccurredAt:    now,
		Status:        domain.StatusSent,
		StatusHistory: []domain.StatusEntry{{Status: domain.StatusSent, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessagesIngested.Inc()

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}

	return msg, nil
}

type StatusUpdateInput struct {
	ExternalID string `json:"external_id"`
	AltID      string `json:"alt_id"`
	Status     string `json:"status"`
}

type StatusUpdateResult struct {
	Applied bool            `json:"applied"`
	Message *domain.Message `json:"message,omitempty"`
}

func (s *MessageService) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*StatusUpdateResult, error) {
	if input.Status == "" {
		return nil, ErrStatusRequired
	}
	if !domain.ValidStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	var key repository.MessageKey
	switch {
	case input.ExternalID != "":
		key = repository.MessageKey{Field: repository.KeyExternalID, Value: input.ExternalID}
	case input.AltID != "":
		key = repository.MessageKey{Field: repository.KeyAltID, Value: input.AltID}
	default:
		return nil, ErrIdentifierRequired
	}

	msg, err := s.repo.ApplyStatus(ctx, key, input.Status, s.now())
	if err != nil {
		return nil, fmt.Errorf("applying status: %w", err)
	}
	if msg == nil {
		// Unknown message: benign no-op, mirroring batch ingestion.
		metrics.OrphanStatuses.Inc()
		return &StatusUpdateResult{Applied: false}, nil
	}
	metrics.StatusesApplied.Inc()

	if s.notifier != nil {
		s.notifier.NotifyStatusUpdate(msg)
	}

	return &StatusUpdateResult{Applied: true, Message: msg}, nil
}

func (s *MessageService) ListChats(ctx context.Context) ([]domain.ChatSummary, error) {
	chats, err := s.repo.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	if chats == nil {
		chats = []domain.ChatSummary{}
	}
	return chats, nil
}

func (s *MessageService) GetConversation(ctx context.Context, chatID string) ([]domain.Message, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrChatIDRequired
	}
	messages, err := s.repo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
