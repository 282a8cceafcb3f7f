// internal/messenger/routes.go

package messenger

import (
	"net/http"

	"github.com/gorilla/mux"
)

// AuthMiddleware matches the signature exported by the users package.
type AuthMiddleware func(http.HandlerFunc) http.HandlerFunc

// RegisterRoutes registers the chat, messaging, and realtime routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Chat directory
	api.HandleFunc("/chats", authMiddleware(handler.GetChats)).Methods("GET")
	api.HandleFunc("/chats/direct/{userId}", authMiddleware(handler.StartDirectChat)).Methods("POST")
	api.HandleFunc("/chats/group", authMiddleware(handler.CreateGroupChat)).Methods("POST")
	api.HandleFunc("/chats/assistant", authMiddleware(handler.StartAssistantChat)).Methods("POST")

	// Messages
	api.HandleFunc("/chats/{id}/messages", authMiddleware(handler.GetMessages)).Methods("GET")
	api.HandleFunc("/messages", authMiddleware(handler.SendMessage)).Methods("POST")
	api.HandleFunc("/chats/{id}/read", authMiddleware(handler.MarkRead)).Methods("POST")
	api.HandleFunc("/chats/active", authMiddleware(handler.SetActive)).Methods("PUT")
	api.HandleFunc("/chats/typing", authMiddleware(handler.UpdateTyping)).Methods("POST")

	// Media
	api.HandleFunc("/media/upload", authMiddleware(handler.UploadMedia)).Methods("POST")

	// Realtime event stream
	api.HandleFunc("/ws", authMiddleware(handler.HandleWebSocket)).Methods("GET")

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
}
