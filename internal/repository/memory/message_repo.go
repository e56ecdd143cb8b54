// Package memory holds an in-memory MessageRepository with the same
// lookup and upsert semantics as the Postgres implementation. It backs
// tests and keeps the persistence handle swappable.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chatflow/chatflow/internal/domain"
	"github.com/chatflow/chatflow/internal/repository"
)

type MessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{}
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, clone(msg))
	return nil
}

func (r *MessageRepo) InsertIfAbsent(_ context.Context, key repository.MessageKey, msg *domain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findByKey(key) != nil {
		return false, nil
	}
	r.messages = append(r.messages, clone(msg))
	return true, nil
}

func (r *MessageRepo) FindByKey(_ context.Context, key repository.MessageKey) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg := r.findByKey(key); msg != nil {
		return clone(msg), nil
	}
	return nil, nil
}

func (r *MessageRepo) ApplyStatus(_ context.Context, key repository.MessageKey, status string, at time.Time) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.findByKey(key)
	if msg == nil {
		return nil, nil
	}
	msg.Status = status
	msg.StatusHistory = append(msg.StatusHistory, domain.StatusEntry{Status: status, Timestamp: at})
	msg.UpdatedAt = at
	return clone(msg), nil
}

func (r *MessageRepo) LatestByChat(_ context.Context, chatID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Message
	for _, msg := range r.messages {
		if msg.ChatID != chatID {
			continue
		}
		if latest == nil || msg.OccurredAt.After(latest.OccurredAt) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, nil
	}
	return clone(latest), nil
}

func (r *MessageRepo) ListByChat(_ context.Context, chatID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var messages []domain.Message
	for _, msg := range r.messages {
		if msg.ChatID == chatID {
			messages = append(messages, *clone(msg))
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].OccurredAt.Before(messages[j].OccurredAt)
	})
	return messages, nil
}

func (r *MessageRepo) ListChats(_ context.Context) ([]domain.ChatSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]*domain.Message)
	for _, msg := range r.messages {
		if cur, ok := latest[msg.ChatID]; !ok || msg.OccurredAt.After(cur.OccurredAt) {
			latest[msg.ChatID] = msg
		}
	}

	var chats []domain.ChatSummary
	for chatID, msg := range latest {
		chats = append(chats, domain.ChatSummary{
			ChatID:        chatID,
			LastMessageAt: msg.OccurredAt,
			LastBody:      msg.Body,
			LastStatus:    msg.Status,
			ContactName:   msg.ContactName,
		})
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

// findByKey matches in insertion order, mirroring the single-row lookups of
// the Postgres implementation. Caller must hold the lock.
func (r *MessageRepo) findByKey(key repository.MessageKey) *domain.Message {
	for _, msg := range r.messages {
		switch key.Field {
		case repository.KeyExternalID:
			if msg.ExternalID != nil && *msg.ExternalID == key.Value {
				return msg
			}
		case repository.KeyAltID:
			if msg.AltID != nil && *msg.AltID == key.Value {
				return msg
			}
		}
	}
	return nil
}

func clone(msg *domain.Message) *domain.Message {
	out := *msg
	out.StatusHistory = append([]domain.StatusEntry(nil), msg.StatusHistory...)
	return &out
}
