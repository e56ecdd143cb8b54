package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow/chatflow/internal/domain"
	"github.com/chatflow/chatflow/internal/repository"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, external_id, alt_id, chat_id, contact_name, sender, recipient,
	type, body, payload, occurred_at, status, status_history, created_at, updated_at`

// keyColumn maps a MessageKey field to its column. Keys are matched against
// a fixed whitelist, never interpolated from input.
func keyColumn(key repository.MessageKey) (string, error) {
	switch key.Field {
	case repository.KeyExternalID:
		return "external_id", nil
	case repository.KeyAltID:
		return "alt_id", nil
	}
	return "", fmt.Errorf("unknown key field %q", key.Field)
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ExternalID, msg.AltID, msg.ChatID, msg.ContactName, msg.Sender, msg.Recipient,
		msg.Type, msg.Body, msg.Payload, msg.OccurredAt, msg.Status, msg.StatusHistory,
		msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

func (r *MessageRepo) InsertIfAbsent(ctx context.Context, key repository.MessageKey, msg *domain.Message) (bool, error) {
	col, err := keyColumn(key)
	if err != nil {
		return false, err
	}

	// The unique partial index on the key column arbitrates the conflict,
	// so concurrent replays of the same payload insert exactly one row.
	query := fmt.Sprintf(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (%s) WHERE %s IS NOT NULL DO NOTHING`, col, col)
	tag, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ExternalID, msg.AltID, msg.ChatID, msg.ContactName, msg.Sender, msg.Recipient,
		msg.Type, msg.Body, msg.Payload, msg.OccurredAt, msg.Status, msg.StatusHistory,
		msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepo) FindByKey(ctx context.Context, key repository.MessageKey) (*domain.Message, error) {
	col, err := keyColumn(key)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE %s = $1
		ORDER BY created_at
		LIMIT 1`, col)
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, key.Value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ApplyStatus(ctx context.Context, key repository.MessageKey, status string, at time.Time) (*domain.Message, error) {
	col, err := keyColumn(key)
	if err != nil {
		return nil, err
	}

	entry, err := json.Marshal([]domain.StatusEntry{{Status: status, Timestamp: at}})
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE messages
		SET status = $1, status_history = status_history || $2::jsonb, updated_at = $3
		WHERE id = (SELECT id FROM messages WHERE %s = $4 ORDER BY created_at LIMIT 1)
		RETURNING `+messageColumns, col)
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, status, string(entry), at, key.Value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) LatestByChat(ctx context.Context, chatID string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1`
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1
		ORDER BY occurred_at ASC`
	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) ListChats(ctx context.Context) ([]domain.ChatSummary, error) {
	// One row per chat: preview fields come from the most recent message.
	query := `
		SELECT chat_id, last_message_at, last_body, last_status, contact_name
		FROM (
			SELECT DISTINCT ON (chat_id)
				chat_id, occurred_at AS last_message_at, body AS last_body,
				status AS last_status, contact_name
			FROM messages
			ORDER BY chat_id, occurred_at DESC
		) chats
		ORDER BY last_message_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []domain.ChatSummary
	for rows.Next() {
		var c domain.ChatSummary
		if err := rows.Scan(&c.ChatID, &c.LastMessageAt, &c.LastBody, &c.LastStatus, &c.ContactName); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID, &msg.ExternalID, &msg.AltID, &msg.ChatID, &msg.ContactName, &msg.Sender, &msg.Recipient,
		&msg.Type, &msg.Body, &msg.Payload, &msg.OccurredAt, &msg.Status, &msg.StatusHistory,
		&msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
