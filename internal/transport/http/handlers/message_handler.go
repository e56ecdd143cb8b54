package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/chatflow/chatflow/internal/service"
	"github.com/chatflow/chatflow/pkg/validator"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.messageService.ListChats(r.Context())
	if err != nil {
		log.Printf("ERROR list chats: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")

	messages, err := h.messageService.GetConversation(r.Context(), chatID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatIDRequired):
			writeError(w, http.StatusBadRequest, "MISSING_CHAT_ID", "Chat ID is required")
		default:
			log.Printf("ERROR get conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateSendMessage(input.ChatID, input.Body); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatIDRequired), errors.Is(err, service.ErrBodyRequired):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input service.StatusUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateStatusUpdate(input.ExternalID, input.AltID, input.Status); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	result, err := h.messageService.UpdateStatus(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStatusRequired),
			errors.Is(err, service.ErrInvalidStatus),
			errors.Is(err, service.ErrIdentifierRequired):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			log.Printf("ERROR update status: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
