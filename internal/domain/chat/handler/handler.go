// Package handler exposes the chat assistant over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/chat"
	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

const maxMessageBytes = 16 << 10

// MessageHandler is the subset of chat.Service the handler needs.
type MessageHandler interface {
	HandleChatMessage(ctx context.Context, message string) (*chat.Response, error)
}

type ChatHandler struct {
	svc    MessageHandler
	logger *slog.Logger
}

func NewChatHandler(svc MessageHandler, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// Register mounts POST /api/chat.
func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/chat", h.Chat).Methods(http.MethodPost)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.svc.HandleChatMessage(r.Context(), req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "chat message failed", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process your message")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
