package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chatflow/chatflow/internal/domain"
	"github.com/chatflow/chatflow/internal/repository"
)

func makeMessage(chatID, body, externalID string, at time.Time) *domain.Message {
	msg := &domain.Message{
		ID:            uuid.New(),
		ChatID:        chatID,
		Type:          "text",
		Body:          body,
		OccurredAt:    at,
		Status:        domain.StatusSent,
		StatusHistory: []domain.StatusEntry{{Status: domain.StatusSent, Timestamp: at}},
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if externalID != "" {
		msg.ExternalID = &externalID
		msg.AltID = &externalID
	}
	return msg
}

func TestInsertIfAbsentLeavesExistingUntouched(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	key := repository.MessageKey{Field: repository.KeyExternalID, Value: "m1"}

	inserted, err := repo.InsertIfAbsent(ctx, key, makeMessage("555", "original", "m1", time.Now()))
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.InsertIfAbsent(ctx, key, makeMessage("555", "replacement", "m1", time.Now()))
	require.NoError(t, err)
	require.False(t, inserted)

	msg, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "original", msg.Body)
}

func TestApplyStatusAppendsHistory(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	key := repository.MessageKey{Field: repository.KeyExternalID, Value: "m1"}

	require.NoError(t, repo.Create(ctx, makeMessage("555", "hi", "m1", time.Now())))

	at := time.Now()
	msg, err := repo.ApplyStatus(ctx, key, domain.StatusDelivered, at)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, domain.StatusDelivered, msg.Status)
	require.Len(t, msg.StatusHistory, 2)
	require.Equal(t, domain.StatusDelivered, msg.StatusHistory[1].Status)

	// Status always matches the last history entry.
	msg, err = repo.ApplyStatus(ctx, key, domain.StatusRead, at.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, msg.StatusHistory[len(msg.StatusHistory)-1].Status, msg.Status)
}

func TestApplyStatusUnknownKey(t *testing.T) {
	repo := NewMessageRepo()

	msg, err := repo.ApplyStatus(context.Background(), repository.MessageKey{
		Field: repository.KeyAltID, Value: "nope",
	}, domain.StatusRead, time.Now())
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestListByChatSortsAscending(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, makeMessage("555", "third", "", base.Add(2*time.Hour))))
	require.NoError(t, repo.Create(ctx, makeMessage("555", "first", "", base)))
	require.NoError(t, repo.Create(ctx, makeMessage("555", "second", "", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, makeMessage("666", "elsewhere", "", base)))

	messages, err := repo.ListByChat(ctx, "555")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Body)
	require.Equal(t, "second", messages[1].Body)
	require.Equal(t, "third", messages[2].Body)
}

func TestListChatsSortsByLastMessageDescending(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, makeMessage("old", "old hello", "", base)))
	require.NoError(t, repo.Create(ctx, makeMessage("busy", "early", "", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, makeMessage("busy", "latest", "", base.Add(3*time.Hour))))
	require.NoError(t, repo.Create(ctx, makeMessage("recent", "hi", "", base.Add(time.Hour))))

	chats, err := repo.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	require.Equal(t, "busy", chats[0].ChatID)
	require.Equal(t, "latest", chats[0].LastBody)
	require.Equal(t, "recent", chats[1].ChatID)
	require.Equal(t, "old", chats[2].ChatID)
}

func TestLatestByChat(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, makeMessage("555", "older", "", base)))
	require.NoError(t, repo.Create(ctx, makeMessage("555", "newest", "", base.Add(time.Hour))))

	msg, err := repo.LatestByChat(ctx, "555")
	require.NoError(t, err)
	require.Equal(t, "newest", msg.Body)

	msg, err = repo.LatestByChat(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestInsertIfAbsentConcurrentReplay(t *testing.T) {
	repo := NewMessageRepo()
	ctx := context.Background()
	key := repository.MessageKey{Field: repository.KeyExternalID, Value: "m1"}
	now := time.Now()

	var wg sync.WaitGroup
	var inserted int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.InsertIfAbsent(ctx, key, makeMessage("555", "hi", "m1", now))
			if err == nil && ok {
				atomic.AddInt32(&inserted, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, inserted)
	messages, err := repo.ListByChat(ctx, "555")
	require.NoError(t, err)
	require.Len(t, messages, 1)
}
