package handler

import (
	"log/slog"
	"net/http"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

// ActionChat asks the budgeting assistant a question.
const ActionChat Action = "chat"

type chatRequest struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
	Context string `json:"context"`
}

// ChatHandler serves the budgeting assistant of the app.
type ChatHandler struct {
	responder
	chat *service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *service.ChatService, logger *slog.Logger, dev bool) *ChatHandler {
	return &ChatHandler{responder: newResponder(logger, dev), chat: chat}
}

// Chat forwards one question to the assistant.
// POST /api/chatbot
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeAction(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Action != ActionChat {
		h.fail(w, r, invalid("Invalid action"))
		return
	}

	reply, err := h.chat.Reply(r.Context(), service.ChatInput{Message: req.Message, Context: req.Context})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ActionResponse{Success: true, Message: "Reply generated", Data: reply})
}
