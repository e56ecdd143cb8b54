package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatflow/chatflow/internal/domain"
)

// unknownChat is the sentinel chat id for fragments that carry no
// conversation identifier at all.
const unknownChat = "unknown"

// rawUnit is one inbound message fragment. Sources disagree on which fields
// they populate; absent ones decode to zero values.
type rawUnit struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	MetaMsgID   string    `json:"meta_msg_id"`
	ChatID      string    `json:"wa_id"`
	Name        string    `json:"name"`
	ProfileName string    `json:"profile_name"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Type        string    `json:"type"`
	Text        textField `json:"text"`
	Timestamp   epochTime `json:"timestamp"`
}

// contactHint is the companion record delivered alongside messages in
// webhook payloads.
type contactHint struct {
	ChatID  string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// textField accepts both the nested {"body": "..."} wrapper and a bare
// string. Anything else decodes to empty.
type textField struct {
	Body string
}

func (t *textField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Body = s
		return nil
	}
	var wrapped struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		t.Body = wrapped.Body
	}
	return nil
}

// epochTime decodes an epoch-seconds value sent as either a JSON number or
// a numeric string. Missing, zero or unparseable values leave Set false so
// callers fall back to ingestion time.
type epochTime struct {
	Time time.Time
	Set  bool
}

func (e *epochTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs == 0 {
		return nil
	}
	e.Time = time.Unix(secs, 0).UTC()
	e.Set = true
	return nil
}

// normalizeMessage turns one raw fragment plus its (possibly nil) contact
// into an unsaved canonical Message. raw is retained verbatim as the stored
// payload. now is the ingestion time; it has no side effects and never
// persists anything.
func normalizeMessage(unit rawUnit, raw json.RawMessage, contact *contactHint, now time.Time) *domain.Message {
	externalID := firstNonEmpty(unit.ID, unit.MessageID)
	altID := firstNonEmpty(unit.MetaMsgID, externalID)

	var hintChat, hintName string
	if contact != nil {
		hintChat = contact.ChatID
		hintName = contact.Profile.Name
	}
	chatID := firstNonEmpty(hintChat, unit.ChatID, unit.From, unit.To, unknownChat)
	name := firstNonEmpty(hintName, unit.Name, unit.ProfileName)

	occurredAt := now
	if unit.Timestamp.Set {
		occurredAt = unit.Timestamp.Time
	}

	msgType := unit.Type
	if msgType == "" {
		msgType = "text"
	}

	return &domain.Message{
		ID:            uuid.New(),
		ExternalID:    optional(externalID),
		AltID:         optional(altID),
		ChatID:        chatID,
		ContactName:   optional(name),
		Sender:        optional(unit.From),
		Recipient:     optional(unit.To),
		Type:          msgType,
		Body:          unit.Text.Body,
		Payload:       raw,
		OccurredAt:    occurredAt,
		Status:        domain.StatusSent,
		StatusHistory: []domain.StatusEntry{{Status: domain.StatusSent, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
