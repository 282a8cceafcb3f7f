// internal/settings/handlers.go

package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/giit-community/futurenet-backend/internal/common/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the current preferences.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, h.service.Get(r.Context()), http.StatusOK)
}

// Update replaces the preferences.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req AppSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidTheme) {
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.ErrorResponse(w, "Failed to update settings", http.StatusInternalServerError)
		return
	}
	utils.SuccessResponse(w, updated, http.StatusOK)
}

// AuthMiddleware matches the signature exported by the users package.
type AuthMiddleware func(http.HandlerFunc) http.HandlerFunc

// RegisterRoutes registers the settings routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/settings", authMiddleware(handler.Get)).Methods("GET")
	api.HandleFunc("/settings", authMiddleware(handler.Update)).Methods("PUT")
}
