// Package api exposes the REST surface of the assistant backend.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/tohum-ai/tohum/internal/api/respond"
	"github.com/tohum-ai/tohum/internal/services"
)

// ChatHandler handles conversational turns.
type ChatHandler struct {
	svc *services.ChatService
}

func NewChatHandler(svc *services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// HandleChat POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string  `json:"sessionId"`
		Message   string  `json:"message"`
		Mode      string  `json:"mode,omitempty"`
		UserID    *string `json:"userId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.SessionID == "" {
		respond.WriteBadRequest(w, "sessionId is required")
		return
	}
	if req.Mode == "" {
		req.Mode = "text"
	}

	turn, err := h.svc.HandleMessage(r.Context(), req.SessionID, req.Message, req.Mode, req.UserID)
	if err != nil {
		respond.WriteModelError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, turn)
}
