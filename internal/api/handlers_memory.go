package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tohum-ai/tohum/internal/api/respond"
	"github.com/tohum-ai/tohum/internal/services"
)

// MemoryHandler handles direct memory reads and writes.
type MemoryHandler struct {
	svc *services.MemoryService
}

func NewMemoryHandler(svc *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// Remember POST /api/memory/remember
func (h *MemoryHandler) Remember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string                 `json:"text"`
		Tags       []string               `json:"tags,omitempty"`
		Metadata   map[string]interface{} `json:"metadata,omitempty"`
		SessionID  *string                `json:"sessionId,omitempty"`
		TrustScore *float64               `json:"trustScore,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	// A session-scoped write may reference a session nobody chatted in yet.
	if req.SessionID != nil && *req.SessionID != "" {
		if err := h.svc.EnsureSession(r.Context(), *req.SessionID, nil); err != nil {
			respond.WriteModelError(w, err)
			return
		}
	}

	item, err := h.svc.Remember(r.Context(), services.RememberRequest{
		Text:       req.Text,
		Tags:       req.Tags,
		Metadata:   req.Metadata,
		SessionID:  req.SessionID,
		TrustScore: req.TrustScore,
	})
	if err != nil {
		respond.WriteModelError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, item)
}

// Search POST /api/memory/search
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string   `json:"query"`
		SessionID *string  `json:"sessionId,omitempty"`
		Tags      []string `json:"tags,omitempty"`
		TopK      int      `json:"topK,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	hits, err := h.svc.SearchMemory(r.Context(), services.SearchRequest{
		Query:     req.Query,
		Limit:     req.TopK,
		SessionID: req.SessionID,
		Tags:      req.Tags,
	})
	if err != nil {
		respond.WriteModelError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": hits,
		"count":   len(hits),
	})
}

// GetSessionMemory GET /api/memory/{sessionId}?limit=
// Returns the transcript and the session-scoped memory items together.
func (h *MemoryHandler) GetSessionMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := h.svc.ListMessages(r.Context(), sessionID, limit)
	if err != nil {
		respond.WriteModelError(w, err)
		return
	}
	items, err := h.svc.ListMemoryItems(r.Context(), &sessionID, limit)
	if err != nil {
		respond.WriteModelError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"messages":  msgs,
		"memory":    items,
	})
}
