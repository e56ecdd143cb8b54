package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatflow/chatflow/internal/domain"
)

func decodeUnit(t *testing.T, data string) rawUnit {
	t.Helper()
	var unit rawUnit
	require.NoError(t, json.Unmarshal([]byte(data), &unit))
	return unit
}

func TestNormalizeWebhookMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := `{"id":"m1","from":"555","text":{"body":"hi"},"timestamp":"1700000000"}`
	contact := &contactHint{ChatID: "555"}
	contact.Profile.Name = "Bob"

	msg := normalizeMessage(decodeUnit(t, raw), json.RawMessage(raw), contact, now)

	require.NotNil(t, msg.ExternalID)
	require.Equal(t, "m1", *msg.ExternalID)
	require.NotNil(t, msg.AltID)
	require.Equal(t, "m1", *msg.AltID)
	require.Equal(t, "555", msg.ChatID)
	require.NotNil(t, msg.ContactName)
	require.Equal(t, "Bob", *msg.ContactName)
	require.Equal(t, "hi", msg.Body)
	require.Equal(t, "text", msg.Type)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), msg.OccurredAt)
	require.Equal(t, domain.StatusSent, msg.Status)
	require.Len(t, msg.StatusHistory, 1)
	require.Equal(t, domain.StatusSent, msg.StatusHistory[0].Status)
	require.Equal(t, now, msg.StatusHistory[0].Timestamp)
	require.JSONEq(t, raw, string(msg.Payload))
}

func TestNormalizeIdentifierFallback(t *testing.T) {
	now := time.Now()

	// message_id stands in for a missing id field
	msg := normalizeMessage(decodeUnit(t, `{"message_id":"alt-7","from":"111"}`), nil, nil, now)
	require.Equal(t, "alt-7", *msg.ExternalID)
	require.Equal(t, "alt-7", *msg.AltID)

	// meta_msg_id wins for the alternate id when present
	msg = normalizeMessage(decodeUnit(t, `{"id":"m2","meta_msg_id":"meta-2","from":"111"}`), nil, nil, now)
	require.Equal(t, "m2", *msg.ExternalID)
	require.Equal(t, "meta-2", *msg.AltID)

	// no identifiers at all is allowed
	msg = normalizeMessage(decodeUnit(t, `{"from":"111","text":"x"}`), nil, nil, now)
	require.Nil(t, msg.ExternalID)
	require.Nil(t, msg.AltID)
}

func TestNormalizeChatIDPrecedence(t *testing.T) {
	now := time.Now()

	contact := &contactHint{ChatID: "contact-chat"}
	msg := normalizeMessage(decodeUnit(t, `{"wa_id":"own-chat","from":"sender","to":"receiver"}`), nil, contact, now)
	require.Equal(t, "contact-chat", msg.ChatID)

	msg = normalizeMessage(decodeUnit(t, `{"wa_id":"own-chat","from":"sender","to":"receiver"}`), nil, nil, now)
	require.Equal(t, "own-chat", msg.ChatID)

	msg = normalizeMessage(decodeUnit(t, `{"from":"sender","to":"receiver"}`), nil, nil, now)
	require.Equal(t, "sender", msg.ChatID)

	msg = normalizeMessage(decodeUnit(t, `{"to":"receiver"}`), nil, nil, now)
	require.Equal(t, "receiver", msg.ChatID)

	msg = normalizeMessage(decodeUnit(t, `{"text":"hello"}`), nil, nil, now)
	require.Equal(t, unknownChat, msg.ChatID)
}

func TestNormalizeNamePrecedence(t *testing.T) {
	now := time.Now()

	contact := &contactHint{ChatID: "555"}
	contact.Profile.Name = "Contact Name"
	msg := normalizeMessage(decodeUnit(t, `{"name":"Unit Name","profile_name":"Profile Name"}`), nil, contact, now)
	require.Equal(t, "Contact Name", *msg.ContactName)

	msg = normalizeMessage(decodeUnit(t, `{"name":"Unit Name","profile_name":"Profile Name"}`), nil, nil, now)
	require.Equal(t, "Unit Name", *msg.ContactName)

	msg = normalizeMessage(decodeUnit(t, `{"profile_name":"Profile Name"}`), nil, nil, now)
	require.Equal(t, "Profile Name", *msg.ContactName)

	msg = normalizeMessage(decodeUnit(t, `{"from":"555"}`), nil, nil, now)
	require.Nil(t, msg.ContactName)
}

func TestNormalizeBodyShapes(t *testing.T) {
	now := time.Now()

	msg := normalizeMessage(decodeUnit(t, `{"text":{"body":"nested"}}`), nil, nil, now)
	require.Equal(t, "nested", msg.Body)

	msg = normalizeMessage(decodeUnit(t, `{"text":"flat"}`), nil, nil, now)
	require.Equal(t, "flat", msg.Body)

	msg = normalizeMessage(decodeUnit(t, `{"from":"555"}`), nil, nil, now)
	require.Equal(t, "", msg.Body)
}

func TestNormalizeTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// numeric epoch
	msg := normalizeMessage(decodeUnit(t, `{"timestamp":1700000000}`), nil, nil, now)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), msg.OccurredAt)

	// string epoch
	msg = normalizeMessage(decodeUnit(t, `{"timestamp":"1700000000"}`), nil, nil, now)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), msg.OccurredAt)

	// missing falls back to ingestion time
	msg = normalizeMessage(decodeUnit(t, `{"from":"555"}`), nil, nil, now)
	require.Equal(t, now, msg.OccurredAt)

	// unparseable falls back too
	msg = normalizeMessage(decodeUnit(t, `{"timestamp":"yesterday"}`), nil, nil, now)
	require.Equal(t, now, msg.OccurredAt)
}

func TestNormalizeTypeDefault(t *testing.T) {
	now := time.Now()

	msg := normalizeMessage(decodeUnit(t, `{"type":"image"}`), nil, nil, now)
	require.Equal(t, "image", msg.Type)

	msg = normalizeMessage(decodeUnit(t, `{"from":"555"}`), nil, nil, now)
	require.Equal(t, "text", msg.Type)
}
