package api

import (
	"github.com/gorilla/mux"

	"github.com/tohum-ai/tohum/internal/api/recovery"
	"github.com/tohum-ai/tohum/internal/services"
)

// NewRouter builds the HTTP router over the already-wired services.
func NewRouter(chatSvc *services.ChatService, memorySvc *services.MemoryService, isHealthy func() bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	chatHandler := NewChatHandler(chatSvc)
	memoryHandler := NewMemoryHandler(memorySvc)
	healthHandler := NewHealthHandler(isHealthy)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	router.HandleFunc("/api/chat", chatHandler.HandleChat).Methods("POST")

	router.HandleFunc("/api/memory/remember", memoryHandler.Remember).Methods("POST")
	router.HandleFunc("/api/memory/search", memoryHandler.Search).Methods("POST")
	router.HandleFunc("/api/memory/{sessionId}", memoryHandler.GetSessionMemory).Methods("GET")

	return router
}
