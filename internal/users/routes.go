// internal/users/routes.go

package users

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers auth and user directory routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Public auth endpoints
	api.HandleFunc("/auth/register", handler.Register).Methods("POST")
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")

	// Authenticated user endpoints
	api.HandleFunc("/users/me", authMiddleware(handler.Me)).Methods("GET")
	api.HandleFunc("/users", authMiddleware(handler.List)).Methods("GET")
	api.HandleFunc("/users/{id}", authMiddleware(handler.Get)).Methods("GET")
}
