package validator

import (
	"strings"

	"github.com/chatflow/chatflow/internal/domain"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

func ValidateSendMessage(chatID, body string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(chatID) == "" {
		errs.Add("chat_id", "Chat ID is required")
	}

	if body == "" {
		errs.Add("body", "Message body is required")
	}

	return errs
}

func ValidateStatusUpdate(externalID, altID, status string) ValidationErrors {
	errs := make(ValidationErrors)

	if status == "" {
		errs.Add("status", "Status is required")
	} else if !domain.ValidStatus(status) {
		errs.Add("status", "Status must be sent, delivered, read, or failed")
	}

	if externalID == "" && altID == "" {
		errs.Add("external_id", "An external_id or alt_id is required")
	}

	return errs
}
