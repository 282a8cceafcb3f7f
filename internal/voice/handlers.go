// internal/voice/handlers.go

package voice

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/giit-community/futurenet-backend/internal/common/utils"
)

type Handler struct {
	probe *Probe
}

func NewHandler(probe *Probe) *Handler {
	return &Handler{probe: probe}
}

// Join enters the voice channel.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	if err := h.probe.Join(r.Context()); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyJoined):
			utils.ErrorResponse(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrPermissionDenied):
			utils.ErrorResponse(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, ErrDeviceNotFound):
			utils.ErrorResponse(w, err.Error(), http.StatusNotFound)
		default:
			utils.ErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
		}
		return
	}
	utils.SuccessResponse(w, h.probe.Status(r.Context()), http.StatusOK)
}

// Leave exits the voice channel.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.probe.Leave(r.Context()); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusConflict)
		return
	}
	utils.SuccessResponse(w, h.probe.Status(r.Context()), http.StatusOK)
}

// Status reports the probe state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, h.probe.Status(r.Context()), http.StatusOK)
}

// AuthMiddleware matches the signature exported by the users package.
type AuthMiddleware func(http.HandlerFunc) http.HandlerFunc

// RegisterRoutes registers the voice channel routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware AuthMiddleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/voice/join", authMiddleware(handler.Join)).Methods("POST")
	api.HandleFunc("/voice/leave", authMiddleware(handler.Leave)).Methods("POST")
	api.HandleFunc("/voice/status", authMiddleware(handler.Status)).Methods("GET")
}
