package repository

import (
	"context"
	"time"

	"github.com/chatflow/chatflow/internal/domain"
)

// KeyField names an identifier column a message can be looked up by.
type KeyField string

const (
	KeyExternalID KeyField = "external_id"
	KeyAltID      KeyField = "alt_id"
)

// MessageKey identifies a message under one of its identifier schemes.
type MessageKey struct {
	Field KeyField
	Value string
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// InsertIfAbsent stores msg unless a message matching key already
	// exists. Existing messages are left untouched. Reports whether a
	// record was inserted.
	InsertIfAbsent(ctx context.Context, key MessageKey, msg *domain.Message) (bool, error)
	FindByKey(ctx context.Context, key MessageKey) (*domain.Message, error)
	// ApplyStatus appends a history entry and overwrites the current
	// status in a single atomic write. Returns nil, nil when no message
	// matches key.
	ApplyStatus(ctx context.Context, key MessageKey, status string, at time.Time) (*domain.Message, error)
	LatestByChat(ctx context.Context, chatID string) (*domain.Message, error)
	ListByChat(ctx context.Context, chatID string) ([]domain.Message, error)
	ListChats(ctx context.Context) ([]domain.ChatSummary, error)
}
